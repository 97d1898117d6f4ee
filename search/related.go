package search

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var interrogatives = []string{"what", "how", "why"}

var leadingInterrogative = regexp.MustCompile(`(?i)^(what|how|why)\b`)

// RelatedQuestions suggests up to three follow-up questions.
//
// A query starting with what, how or why is echoed with the word swapped for
// each of the other two. Any other query fills three fixed templates.
func RelatedQuestions(query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	if m := leadingInterrogative.FindString(query); m != "" {
		rest := query[len(m):]
		var out []string
		for _, w := range interrogatives {
			if strings.EqualFold(w, m) {
				continue
			}
			out = append(out, matchCase(w, m)+rest)
		}
		return out
	}

	topic := strings.TrimSpace(strings.TrimRight(query, "?"))
	return []string{
		fmt.Sprintf("How does %s work?", topic),
		fmt.Sprintf("What are the benefits of %s?", topic),
		fmt.Sprintf("Recent developments in %s", topic),
	}
}

// matchCase gives word the first-letter case of like.
func matchCase(word, like string) string {
	r, _ := utf8.DecodeRuneInString(like)
	if unicode.IsUpper(r) {
		return strings.ToUpper(word[:1]) + word[1:]
	}
	return word
}
