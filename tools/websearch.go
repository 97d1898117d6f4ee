package tools

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/vinayprograms/nexa/ratelimit"
)

// Web search backends.
const (
	BackendAuto       = "auto"
	BackendBrave      = "brave"
	BackendTavily     = "tavily"
	BackendDuckDuckGo = "duckduckgo"
)

const webSearchCount = 5

// SearchResult is a single web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// webSearchTool searches the web with Brave, Tavily or DuckDuckGo.
type webSearchTool struct {
	cfg Config

	braveURL  string
	tavilyURL string
	ddgURL    string
}

func newWebSearchTool(cfg Config) *webSearchTool {
	return &webSearchTool{
		cfg:       cfg,
		braveURL:  "https://api.search.brave.com/res/v1/web/search",
		tavilyURL: "https://api.tavily.com/search",
		ddgURL:    "https://html.duckduckgo.com/html/",
	}
}

func (t *webSearchTool) ID() ToolID          { return WebSearch }
func (t *webSearchTool) Name() string        { return string(WebSearch) }
func (t *webSearchTool) DisplayName() string { return WebSearch.DisplayName() }

func (t *webSearchTool) Description() string {
	return "Search the internet for current information, news, and real-time data."
}

func (t *webSearchTool) Invoke(ctx context.Context, query string) (string, error) {
	return invoke(ctx, t.cfg, WebSearch, query, func(ctx context.Context) (string, string, error) {
		results, backend, err := t.search(ctx, strings.TrimSpace(query))
		if err != nil {
			return "", backend, err
		}
		return formatSearchResults(results, t.cfg.MaxChars), backend, nil
	})
}

type backendFunc func(ctx context.Context, query string, count int) ([]SearchResult, error)

// backends returns the backends to try in order. Brave and Tavily are only
// used when a key is configured; DuckDuckGo needs none.
func (t *webSearchTool) backends() []string {
	switch t.cfg.Backend {
	case BackendBrave, BackendTavily, BackendDuckDuckGo:
		return []string{t.cfg.Backend}
	}

	var out []string
	if t.key(BackendBrave) != "" {
		out = append(out, BackendBrave)
	}
	if t.key(BackendTavily) != "" {
		out = append(out, BackendTavily)
	}
	return append(out, BackendDuckDuckGo)
}

func (t *webSearchTool) key(backend string) string {
	if t.cfg.Credentials == nil {
		return ""
	}
	return t.cfg.Credentials.GetAPIKey(backend)
}

// search tries each backend in order and returns the first success.
func (t *webSearchTool) search(ctx context.Context, query string) ([]SearchResult, string, error) {
	var errs []error
	var last string
	for _, name := range t.backends() {
		last = name
		if err := t.acquire(ctx, name); err != nil {
			return nil, name, err
		}

		var fn backendFunc
		switch name {
		case BackendBrave:
			fn = t.searchBrave
		case BackendTavily:
			fn = t.searchTavily
		default:
			fn = t.searchDuckDuckGo
		}

		results, err := fn(ctx, query, webSearchCount)
		if err == nil {
			return results, name, nil
		}

		var status *httpStatusError
		if stderrors.As(err, &status) && status.Status == http.StatusTooManyRequests && t.cfg.Limiter != nil {
			t.cfg.Limiter.Reduce(name, "429 from "+name)
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, last, stderrors.Join(errs...)
}

// acquire waits for the backend's rate limit. Backends without a configured
// limit are not throttled.
func (t *webSearchTool) acquire(ctx context.Context, backend string) error {
	if t.cfg.Limiter == nil {
		return nil
	}
	err := t.cfg.Limiter.Acquire(ctx, backend)
	if stderrors.Is(err, ratelimit.ErrResourceUnknown) {
		return nil
	}
	return err
}

// searchBrave searches using the Brave Search API.
func (t *webSearchTool) searchBrave(ctx context.Context, query string, count int) ([]SearchResult, error) {
	u := fmt.Sprintf("%s?q=%s&count=%d", t.braveURL, url.QueryEscape(query), count)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Subscription-Token", t.key(BackendBrave))
	req.Header.Set("Accept", "application/json")

	body, err := do(t.cfg.HTTPClient, "brave search", req)
	if err != nil {
		return nil, err
	}

	var braveResp struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.Unmarshal(body, &braveResp); err != nil {
		return nil, fmt.Errorf("failed to parse brave response: %w", err)
	}

	results := make([]SearchResult, 0, len(braveResp.Web.Results))
	for _, r := range braveResp.Web.Results {
		results = append(results, SearchResult{
			Title:   stripHTML(r.Title),
			URL:     r.URL,
			Snippet: stripHTML(r.Description),
		})
	}
	return results, nil
}

// searchTavily searches using the Tavily API.
func (t *webSearchTool) searchTavily(ctx context.Context, query string, count int) ([]SearchResult, error) {
	reqBody, err := json.Marshal(map[string]interface{}{
		"api_key":     t.key(BackendTavily),
		"query":       query,
		"max_results": count,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.tavilyURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := do(t.cfg.HTTPClient, "tavily search", req)
	if err != nil {
		return nil, err
	}

	var tavilyResp struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &tavilyResp); err != nil {
		return nil, fmt.Errorf("failed to parse tavily response: %w", err)
	}

	results := make([]SearchResult, 0, len(tavilyResp.Results))
	for _, r := range tavilyResp.Results {
		results = append(results, SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Content})
	}
	return results, nil
}

// searchDuckDuckGo searches using DuckDuckGo's HTML lite endpoint.
func (t *webSearchTool) searchDuckDuckGo(ctx context.Context, query string, count int) ([]SearchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.ddgURL+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Lynx/2.8.9rel.1 libwww-FM/2.14")
	req.Header.Set("Accept", "text/html")

	body, err := do(t.cfg.HTTPClient, "duckduckgo search", req)
	if err != nil {
		return nil, err
	}
	return parseDuckDuckGoHTML(string(body), count), nil
}

var (
	ddgLinkRe    = regexp.MustCompile(`<a[^>]+class="result__a"[^>]+href="([^"]+)"[^>]*>(.*?)</a>`)
	ddgSnippetRe = regexp.MustCompile(`(?s)<a[^>]+class="result__snippet"[^>]*>(.*?)</a>`)
)

// parseDuckDuckGoHTML extracts results from the HTML lite page. Result links
// go through a redirect carrying the target in the uddg parameter.
func parseDuckDuckGoHTML(page string, count int) []SearchResult {
	links := ddgLinkRe.FindAllStringSubmatch(page, -1)
	snippets := ddgSnippetRe.FindAllStringSubmatch(page, -1)

	var results []SearchResult
	for i := 0; i < len(links) && len(results) < count; i++ {
		target := resolveDuckDuckGoURL(stripHTML(links[i][1]))
		if !strings.HasPrefix(target, "http") {
			continue
		}
		var snippet string
		if i < len(snippets) {
			snippet = stripHTML(snippets[i][1])
		}
		results = append(results, SearchResult{
			Title:   stripHTML(links[i][2]),
			URL:     target,
			Snippet: snippet,
		})
	}
	return results
}

func resolveDuckDuckGoURL(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

// formatSearchResults renders hits as text for the model.
func formatSearchResults(results []SearchResult, maxChars int) string {
	if len(results) == 0 {
		return "No good search result was found"
	}
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, truncateRunes(fmt.Sprintf("%s\n%s\n%s", r.Title, r.URL, r.Snippet), maxChars))
	}
	return strings.Join(parts, "\n\n")
}
