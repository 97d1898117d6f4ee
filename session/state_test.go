package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/vinayprograms/nexa/errors"
	"github.com/vinayprograms/nexa/search"
	"github.com/vinayprograms/nexa/tools"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestState(t *testing.T) *State {
	t.Helper()
	st, err := NewState("s1", t0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func result(query, answer string) *search.Result {
	return &search.Result{
		Query:   query,
		Answer:  answer,
		Success: true,
		Sources: []search.Source{{Tool: tools.Wikipedia, Query: query, DisplayName: tools.Wikipedia.DisplayName()}},
	}
}

func historyQueries(entries []HistoryEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Query
	}
	return out
}

func TestAddHistory_MostRecentFirstAndDedup(t *testing.T) {
	st := newTestState(t)
	for i, q := range []string{"alpha", "beta", "alpha"} {
		if err := st.AddHistory(result(q, "answer "+q), t0.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatal(err)
		}
	}

	got := historyQueries(st.History())
	want := []string{"alpha", "beta"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("History = %v, want %v", got, want)
	}
	if e, _ := st.HistoryAt(0); !e.Timestamp.Equal(t0.Add(2 * time.Minute)) {
		t.Errorf("Timestamp = %v", e.Timestamp)
	}
}

func TestAddHistory_Cap(t *testing.T) {
	st := newTestState(t)
	for i := 0; i < MaxHistory+5; i++ {
		if err := st.AddHistory(result(fmt.Sprintf("query %d", i), "x"), t0); err != nil {
			t.Fatal(err)
		}
	}
	h := st.History()
	if len(h) != MaxHistory {
		t.Fatalf("len = %d, want %d", len(h), MaxHistory)
	}
	if h[0].Query != fmt.Sprintf("query %d", MaxHistory+4) {
		t.Errorf("newest = %q", h[0].Query)
	}
	if h[len(h)-1].Query != "query 5" {
		t.Errorf("oldest = %q", h[len(h)-1].Query)
	}

	// Evicted entries are no longer searchable.
	found, err := st.SearchHistory("query")
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != MaxHistory {
		t.Errorf("search found %d entries", len(found))
	}
}

func TestAddHistory_IndexFailureKeepsHistory(t *testing.T) {
	st := newTestState(t)
	if err := st.AddHistory(result("alpha", "first"), t0); err != nil {
		t.Fatal(err)
	}

	closed, err := newHistoryIndex()
	if err != nil {
		t.Fatal(err)
	}
	_ = closed.close()
	live := st.index
	st.index = closed
	err = st.AddHistory(result("beta", "second"), t0.Add(time.Minute))
	st.index = live

	if err == nil {
		t.Fatal("expected an error from a closed index")
	}
	if got := historyQueries(st.History()); fmt.Sprint(got) != "[alpha]" {
		t.Errorf("History = %v, want [alpha]", got)
	}
	hits, err := st.SearchHistory("alpha")
	if err != nil || len(hits) != 1 {
		t.Errorf("SearchHistory(alpha) = %v, %v", historyQueries(hits), err)
	}
}

func TestAddHistory_Invalid(t *testing.T) {
	st := newTestState(t)
	for _, res := range []*search.Result{nil, {Query: "  "}} {
		if err := st.AddHistory(res, t0); !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("AddHistory(%v) error = %v", res, err)
		}
	}
}

func TestAddHistory_StoresCopy(t *testing.T) {
	st := newTestState(t)
	res := result("alpha", "one")
	if err := st.AddHistory(res, t0); err != nil {
		t.Fatal(err)
	}
	res.Answer = "changed"
	if e, _ := st.HistoryAt(0); e.Result.Answer != "one" {
		t.Errorf("stored answer = %q", e.Result.Answer)
	}
}

func TestSearchHistory(t *testing.T) {
	st := newTestState(t)
	entries := []*search.Result{
		result("quantum computing basics", "Qubits hold superposition."),
		result("capital of France", "Paris is the capital."),
		result("mars missions", "Perseverance landed in Jezero crater."),
	}
	for _, r := range entries {
		if err := st.AddHistory(r, t0); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		term string
		want []string
	}{
		{"quantum", []string{"quantum computing basics"}},
		{"paris", []string{"capital of France"}},
		{"crater", []string{"mars missions"}},
		{"wikipedia", []string{"mars missions", "capital of France", "quantum computing basics"}},
		{"", []string{"mars missions", "capital of France", "quantum computing basics"}},
		{"zebra", nil},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			got, err := st.SearchHistory(tt.term)
			if err != nil {
				t.Fatal(err)
			}
			if fmt.Sprint(historyQueries(got)) != fmt.Sprint(tt.want) {
				t.Errorf("SearchHistory(%q) = %v, want %v", tt.term, historyQueries(got), tt.want)
			}
		})
	}
}

func TestClearHistory(t *testing.T) {
	st := newTestState(t)
	_ = st.AddHistory(result("alpha", "one"), t0)
	if err := st.ClearHistory(); err != nil {
		t.Fatal(err)
	}
	if len(st.History()) != 0 {
		t.Error("history not cleared")
	}
	found, err := st.SearchHistory("alpha")
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 0 {
		t.Errorf("search after clear = %v", historyQueries(found))
	}
	if err := st.AddHistory(result("beta", "two"), t0); err != nil {
		t.Fatal(err)
	}
	if found, _ := st.SearchHistory("beta"); len(found) != 1 {
		t.Error("index unusable after clear")
	}
}

func TestFavorites(t *testing.T) {
	st := newTestState(t)
	if !st.ToggleFavorite("zeta") {
		t.Error("first toggle should mark")
	}
	st.ToggleFavorite("alpha")
	if !st.IsFavorite("zeta") {
		t.Error("zeta not favorite")
	}
	if got := st.Favorites(); fmt.Sprint(got) != "[alpha zeta]" {
		t.Errorf("Favorites = %v", got)
	}
	if st.ToggleFavorite("zeta") {
		t.Error("second toggle should unmark")
	}
	if st.IsFavorite("zeta") {
		t.Error("zeta still favorite")
	}
}

func TestFeedback(t *testing.T) {
	st := newTestState(t)
	if _, ok := st.Feedback("q"); ok {
		t.Error("unexpected feedback")
	}
	st.SetFeedback("q", SentimentUp)
	st.SetFeedback("q", SentimentDown)
	if v, ok := st.Feedback("q"); !ok || v != SentimentDown {
		t.Errorf("Feedback = %q, %v", v, ok)
	}
}

func TestParseSentiment(t *testing.T) {
	tests := []struct {
		in      string
		want    Sentiment
		wantErr bool
	}{
		{"up", SentimentUp, false},
		{" DOWN ", SentimentDown, false},
		{"meh", "", true},
	}
	for _, tt := range tests {
		got, err := ParseSentiment(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseSentiment(%q) = %q, %v", tt.in, got, err)
		}
	}
}
