package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vinayprograms/nexa/search"
)

const exportTimeLayout = "2006-01-02 15:04:05"

// ExportText renders a result as a plain-text transcript.
func ExportText(res *search.Result, now time.Time) string {
	var b strings.Builder
	b.WriteString("Nexa Search Export\n")
	b.WriteString("==================\n\n")
	fmt.Fprintf(&b, "Query: %s\n", res.Query)
	fmt.Fprintf(&b, "Timestamp: %s\n", now.Format(exportTimeLayout))
	fmt.Fprintf(&b, "Mode: %s\n", res.Mode)
	fmt.Fprintf(&b, "Language: %s\n", res.Language.Name())
	if res.Model != "" {
		fmt.Fprintf(&b, "Model: %s\n", res.Model)
	}
	b.WriteString("\nAnswer:\n")
	b.WriteString(res.Answer)
	b.WriteString("\n")

	if len(res.Sources) > 0 {
		b.WriteString("\nSources:\n")
		for i, s := range res.Sources {
			fmt.Fprintf(&b, "%d. %s: %s\n", i+1, s.Tool.DisplayName(), s.Query)
		}
	}
	return b.String()
}

// exportEnvelope is the JSON export document.
type exportEnvelope struct {
	Query     string         `json:"query"`
	Timestamp time.Time      `json:"timestamp"`
	Result    *search.Result `json:"result"`
}

// ExportJSON renders a result as an indented JSON document.
func ExportJSON(res *search.Result, now time.Time) ([]byte, error) {
	data, err := json.MarshalIndent(exportEnvelope{
		Query:     res.Query,
		Timestamp: now,
		Result:    res,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	return data, nil
}
