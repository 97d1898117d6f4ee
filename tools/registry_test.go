package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/vinayprograms/nexa/errors"
	"github.com/vinayprograms/nexa/logging"
)

func testConfig() Config {
	cfg := Config{Logger: logging.Nop()}
	cfg.applyDefaults()
	return cfg
}

// stubTool is a Tool with a canned reply.
type stubTool struct {
	id    ToolID
	reply string
}

func (s *stubTool) ID() ToolID          { return s.id }
func (s *stubTool) Name() string        { return string(s.id) }
func (s *stubTool) Description() string { return "stub " + string(s.id) }
func (s *stubTool) DisplayName() string { return s.id.DisplayName() }
func (s *stubTool) Invoke(ctx context.Context, query string) (string, error) {
	return s.reply, nil
}

func TestParseToolID(t *testing.T) {
	tests := []struct {
		in      string
		want    ToolID
		wantErr bool
	}{
		{"web_search", WebSearch, false},
		{" Wikipedia ", Wikipedia, false},
		{"arxiv_search", Arxiv, false},
		{"arxiv", Arxiv, false},
		{"web_serach", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseToolID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseToolID(%q) error = %v", tt.in, err)
			continue
		}
		if tt.wantErr && !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("ParseToolID(%q) code = %s", tt.in, errors.Code(err))
		}
		if got != tt.want {
			t.Errorf("ParseToolID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseToolIDs(t *testing.T) {
	ids, rejected := ParseToolIDs([]string{"wikipedia", "bogus", "WIKIPEDIA", "web_search"})
	if len(ids) != 2 || ids[0] != Wikipedia || ids[1] != WebSearch {
		t.Errorf("ids = %v", ids)
	}
	if len(rejected) != 1 || rejected[0] != "bogus" {
		t.Errorf("rejected = %v", rejected)
	}
}

func TestDisplayNames(t *testing.T) {
	tests := map[ToolID]string{
		WebSearch: "🌐 Web Search",
		Wikipedia: "📚 Wikipedia",
		Arxiv:     "📄 arXiv",
		"other":   "other",
	}
	for id, want := range tests {
		if got := id.DisplayName(); got != want {
			t.Errorf("%s.DisplayName() = %q, want %q", id, got, want)
		}
	}
}

func TestRegistry_DefaultTools(t *testing.T) {
	reg := NewDefaultRegistry(Config{Logger: logging.Nop()})

	for _, id := range AllToolIDs() {
		tool := reg.Get(id)
		if tool == nil {
			t.Fatalf("expected built-in tool %q", id)
		}
		if tool.Name() != string(id) {
			t.Errorf("tool %q has name %q", id, tool.Name())
		}
		if tool.Description() == "" {
			t.Errorf("tool %q has no description", id)
		}
	}
	if got := reg.IDs(); len(got) != 3 || got[0] != WebSearch {
		t.Errorf("IDs() = %v", got)
	}
}

func TestRegistry_Resolve(t *testing.T) {
	reg := NewRegistry(&stubTool{id: WebSearch}, &stubTool{id: Wikipedia}, &stubTool{id: Arxiv})

	if got := reg.Resolve(nil); len(got) != 3 {
		t.Errorf("empty selection should resolve every tool, got %d", len(got))
	}

	got := reg.Resolve([]ToolID{Arxiv, WebSearch})
	if len(got) != 2 || got[0].ID() != WebSearch || got[1].ID() != Arxiv {
		t.Errorf("Resolve kept registration order? got %v, %v", got[0].ID(), got[1].ID())
	}

	if got := NewRegistry(&stubTool{id: WebSearch}).Resolve([]ToolID{Arxiv}); len(got) != 0 {
		t.Errorf("unregistered tool resolved: %v", got)
	}
}

func TestRegistry_Descriptors(t *testing.T) {
	reg := NewRegistry(&stubTool{id: Wikipedia}, &stubTool{id: Arxiv})
	descs := reg.Descriptors()
	if len(descs) != 2 {
		t.Fatalf("got %d descriptors", len(descs))
	}
	if descs[0].ID != Arxiv || descs[0].DisplayName != "📄 arXiv" {
		t.Errorf("descs[0] = %+v", descs[0])
	}
}

func TestInvoke_EmptyQuery(t *testing.T) {
	_, err := invoke(context.Background(), testConfig(), WebSearch, "  ", func(ctx context.Context) (string, string, error) {
		t.Fatal("lookup must not run")
		return "", "", nil
	})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestInvoke_WrapsFailure(t *testing.T) {
	_, err := invoke(context.Background(), testConfig(), Wikipedia, "q", func(ctx context.Context) (string, string, error) {
		return "", "", &httpStatusError{Service: "wikipedia", Status: 500}
	})
	if !errors.Is(err, errors.ErrCodeToolFailed) {
		t.Errorf("expected TOOL_FAILED, got %v", err)
	}
	if !strings.Contains(err.Error(), "wikipedia") {
		t.Errorf("error should name the tool: %v", err)
	}
}

func TestLanguageContext(t *testing.T) {
	if got := LanguageFrom(context.Background()); got != "en" {
		t.Errorf("default language = %q", got)
	}
	if got := LanguageFrom(WithLanguage(context.Background(), "fr")); got != "fr" {
		t.Errorf("language = %q", got)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("héllo", 2); got != "hé" {
		t.Errorf("got %q", got)
	}
	if got := truncateRunes("abc", 10); got != "abc" {
		t.Errorf("got %q", got)
	}
}
