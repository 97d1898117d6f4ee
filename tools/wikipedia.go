package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// wikipediaTool looks up encyclopedia articles through the MediaWiki API of
// the wiki matching the request language.
type wikipediaTool struct {
	cfg Config

	// endpoint returns the api.php URL for a language subdomain.
	endpoint func(lang string) string
}

func newWikipediaTool(cfg Config) *wikipediaTool {
	return &wikipediaTool{
		cfg: cfg,
		endpoint: func(lang string) string {
			return fmt.Sprintf("https://%s.wikipedia.org/w/api.php", lang)
		},
	}
}

func (t *wikipediaTool) ID() ToolID          { return Wikipedia }
func (t *wikipediaTool) Name() string        { return string(Wikipedia) }
func (t *wikipediaTool) DisplayName() string { return Wikipedia.DisplayName() }

func (t *wikipediaTool) Description() string {
	return "Search Wikipedia for encyclopedic knowledge and facts."
}

func (t *wikipediaTool) Invoke(ctx context.Context, query string) (string, error) {
	return invoke(ctx, t.cfg, Wikipedia, query, func(ctx context.Context) (string, string, error) {
		lang := wikiLanguage(LanguageFrom(ctx))
		out, err := t.lookup(ctx, lang, strings.TrimSpace(query))
		return out, lang + ".wikipedia.org", err
	})
}

// wikiLanguage maps an answer language to a Wikipedia subdomain.
func wikiLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" || strings.ContainsAny(lang, "./:") {
		return "en"
	}
	return lang
}

type wikiPage struct {
	PageID  int    `json:"pageid"`
	Title   string `json:"title"`
	Extract string `json:"extract"`
	Index   int    `json:"index"`
}

func (t *wikipediaTool) lookup(ctx context.Context, lang, query string) (string, error) {
	api := t.endpoint(lang)

	// One request: search generator plus plain-text intro extracts.
	params := url.Values{
		"action":      {"query"},
		"format":      {"json"},
		"generator":   {"search"},
		"gsrsearch":   {query},
		"gsrlimit":    {strconv.Itoa(t.cfg.TopK)},
		"prop":        {"extracts"},
		"exintro":     {"1"},
		"explaintext": {"1"},
		"exlimit":     {"max"},
		"redirects":   {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, api+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "nexa-search/1.0")
	req.Header.Set("Accept", "application/json")

	body, err := do(t.cfg.HTTPClient, "wikipedia", req)
	if err != nil {
		return "", err
	}

	var resp struct {
		Query struct {
			Pages map[string]wikiPage `json:"pages"`
		} `json:"query"`
		Error *struct {
			Code string `json:"code"`
			Info string `json:"info"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse wikipedia response: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("wikipedia error %s: %s", resp.Error.Code, resp.Error.Info)
	}

	pages := make([]wikiPage, 0, len(resp.Query.Pages))
	for _, p := range resp.Query.Pages {
		pages = append(pages, p)
	}
	// Map order is random; the search rank is in index.
	sort.Slice(pages, func(i, j int) bool { return pages[i].Index < pages[j].Index })
	if len(pages) > t.cfg.TopK {
		pages = pages[:t.cfg.TopK]
	}

	return formatWikiPages(pages, t.cfg.MaxChars), nil
}

func formatWikiPages(pages []wikiPage, maxChars int) string {
	var docs []string
	for _, p := range pages {
		if strings.TrimSpace(p.Extract) == "" {
			continue
		}
		docs = append(docs, truncateRunes(fmt.Sprintf("Page: %s\nSummary: %s", p.Title, strings.TrimSpace(p.Extract)), maxChars))
	}
	if len(docs) == 0 {
		return "No good Wikipedia Search Result was found"
	}
	return strings.Join(docs, "\n\n")
}
