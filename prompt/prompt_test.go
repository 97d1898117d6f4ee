package prompt

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/vinayprograms/nexa/tools"
)

type fakeTool struct {
	id   tools.ToolID
	desc string
}

func (f fakeTool) ID() tools.ToolID                               { return f.id }
func (f fakeTool) Name() string                                   { return string(f.id) }
func (f fakeTool) Description() string                            { return f.desc }
func (f fakeTool) DisplayName() string                            { return f.id.DisplayName() }
func (f fakeTool) Invoke(context.Context, string) (string, error) { return "", nil }

var testTools = []tools.Tool{
	fakeTool{tools.WebSearch, "Search the internet."},
	fakeTool{tools.Wikipedia, "Search Wikipedia."},
}

func TestBuild_ToolSections(t *testing.T) {
	p := Build(Input{Tools: testTools, Mode: Balanced, Language: English})

	if p.ToolList != "web_search: Search the internet.\nwikipedia: Search Wikipedia." {
		t.Errorf("ToolList = %q", p.ToolList)
	}
	if p.ToolNames != "web_search, wikipedia" {
		t.Errorf("ToolNames = %q", p.ToolNames)
	}
	for _, want := range []string{
		p.ToolList,
		"should be one of [web_search, wikipedia]",
		"Keep tool usage to 1-2 calls maximum",
		"Respond in English",
		"Question: {input}",
	} {
		if !strings.Contains(p.Text, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if !strings.HasSuffix(p.Text, "Thought:{agent_scratchpad}") {
		t.Errorf("prompt should end with the scratchpad slot: %q", p.Text[len(p.Text)-40:])
	}
}

func TestBuild_ModeBudgets(t *testing.T) {
	tests := []struct {
		mode   Mode
		iters  int
		limit  time.Duration
		phrase string
	}{
		{Quick, 3, 60 * time.Second, "1 call maximum"},
		{Balanced, 10, 60 * time.Second, "1-2 calls maximum"},
		{Deep, 15, 90 * time.Second, "thorough"},
		{"turbo", 10, 60 * time.Second, "1-2 calls maximum"},
	}
	for _, tt := range tests {
		p := Build(Input{Tools: testTools, Mode: tt.mode})
		if p.Budget.MaxIterations != tt.iters || p.Budget.MaxExecutionTime != tt.limit {
			t.Errorf("%s: budget = %+v", tt.mode, p.Budget)
		}
		if !strings.Contains(p.Text, tt.phrase) {
			t.Errorf("%s: prompt missing %q", tt.mode, tt.phrase)
		}
	}
}

func TestBuild_IsPure(t *testing.T) {
	in := Input{Tools: testTools, Mode: Deep, Language: "fr"}
	if Build(in) != Build(in) {
		t.Error("Build should be deterministic")
	}
}

func TestRender(t *testing.T) {
	p := Build(Input{Tools: testTools})
	out := p.Render("What is {agent_scratchpad}?", "\nThought: searching")
	if !strings.Contains(out, "Question: What is {agent_scratchpad}?") {
		t.Error("question text must be inserted verbatim")
	}
	if !strings.HasSuffix(out, "Thought:\nThought: searching") {
		t.Errorf("scratchpad not appended: %q", out[len(out)-40:])
	}
}

func TestParseMode(t *testing.T) {
	tests := map[string]Mode{"quick": Quick, " DEEP ": Deep, "balanced": Balanced, "": Balanced, "fast": Balanced}
	for in, want := range tests {
		if got := ParseMode(in); got != want {
			t.Errorf("ParseMode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseLanguage(t *testing.T) {
	tests := map[string]Language{
		"fr":      "fr",
		"ES":      "es",
		"German":  "de",
		"日本語":     "ja",
		"klingon": English,
		"":        English,
	}
	for in, want := range tests {
		if got := ParseLanguage(in); got != want {
			t.Errorf("ParseLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLanguages(t *testing.T) {
	all := AllLanguages()
	if len(all) != 10 {
		t.Fatalf("expected 10 languages, got %d", len(all))
	}
	for _, l := range all {
		if l.Name() == "" || l.NativeName() == "" {
			t.Errorf("%s lacks names", l)
		}
	}
	if got := Language("hi").Instruction(); !strings.Contains(got, "Respond in Hindi") {
		t.Errorf("Instruction() = %q", got)
	}
}
