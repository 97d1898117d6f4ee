package tools

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"
)

type languageKey struct{}

// WithLanguage returns a context carrying the answer language code.
// Language-aware tools such as Wikipedia read it.
func WithLanguage(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, languageKey{}, lang)
}

// LanguageFrom returns the language code stored in ctx, defaulting to "en".
func LanguageFrom(ctx context.Context) string {
	if lang, ok := ctx.Value(languageKey{}).(string); ok && lang != "" {
		return lang
	}
	return "en"
}

// truncateRunes cuts s to at most n characters without splitting a rune.
func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

var (
	reTags       = regexp.MustCompile(`<[^>]*>`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

// stripHTML removes tags, decodes entities and collapses whitespace.
func stripHTML(s string) string {
	s = reTags.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))
}

// httpStatusError is returned for non-200 responses.
type httpStatusError struct {
	Service string
	Status  int
	Body    string
}

func (e *httpStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s error: status %d", e.Service, e.Status)
	}
	return fmt.Sprintf("%s error (%d): %s", e.Service, e.Status, e.Body)
}

// do sends req and returns the body of a 200 response.
func do(client *http.Client, service string, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, &httpStatusError{Service: service, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", service, err)
	}
	return body, nil
}
