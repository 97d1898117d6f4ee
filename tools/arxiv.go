package tools

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// arxivTool searches paper metadata through the arXiv Atom API.
type arxivTool struct {
	cfg     Config
	baseURL string
}

func newArxivTool(cfg Config) *arxivTool {
	return &arxivTool{cfg: cfg, baseURL: "https://export.arxiv.org/api/query"}
}

func (t *arxivTool) ID() ToolID          { return Arxiv }
func (t *arxivTool) Name() string        { return string(Arxiv) }
func (t *arxivTool) DisplayName() string { return Arxiv.DisplayName() }

func (t *arxivTool) Description() string {
	return "Search arXiv for academic papers and research articles."
}

func (t *arxivTool) Invoke(ctx context.Context, query string) (string, error) {
	return invoke(ctx, t.cfg, Arxiv, query, func(ctx context.Context) (string, string, error) {
		out, err := t.lookup(ctx, strings.TrimSpace(query))
		return out, "export.arxiv.org", err
	})
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string       `xml:"id"`
	Title     string       `xml:"title"`
	Summary   string       `xml:"summary"`
	Published string       `xml:"published"`
	Authors   []atomAuthor `xml:"author"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

func (t *arxivTool) lookup(ctx context.Context, query string) (string, error) {
	params := url.Values{
		"search_query": {"all:" + query},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(t.cfg.TopK)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/atom+xml")

	body, err := do(t.cfg.HTTPClient, "arxiv", req)
	if err != nil {
		return "", err
	}

	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return "", fmt.Errorf("failed to parse arxiv feed: %w", err)
	}

	entries := feed.Entries
	if len(entries) > t.cfg.TopK {
		entries = entries[:t.cfg.TopK]
	}
	return formatArxivEntries(entries, t.cfg.MaxChars), nil
}

func formatArxivEntries(entries []atomEntry, maxChars int) string {
	var docs []string
	for _, e := range entries {
		// The API reports errors as a single entry titled "Error".
		if strings.TrimSpace(e.Title) == "Error" {
			continue
		}
		authors := make([]string, 0, len(e.Authors))
		for _, a := range e.Authors {
			authors = append(authors, strings.TrimSpace(a.Name))
		}
		published := e.Published
		if len(published) >= 10 {
			published = published[:10]
		}
		doc := fmt.Sprintf("Published: %s\nTitle: %s\nAuthors: %s\nSummary: %s",
			published, collapse(e.Title), strings.Join(authors, ", "), collapse(e.Summary))
		docs = append(docs, truncateRunes(doc, maxChars))
	}
	if len(docs) == 0 {
		return "No good Arxiv Result was found"
	}
	return strings.Join(docs, "\n\n")
}

// collapse joins the wrapped lines of Atom text fields.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
