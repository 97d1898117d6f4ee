// Package session keeps per-user UI state: search history, favorites and
// answer feedback. State lives in memory for as long as the session does.
package session

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vinayprograms/nexa/errors"
	"github.com/vinayprograms/nexa/search"
)

// MaxHistory is the number of searches a session remembers.
const MaxHistory = 50

// Sentiment is a thumbs up or down on an answer.
type Sentiment string

const (
	SentimentUp   Sentiment = "up"
	SentimentDown Sentiment = "down"
)

// ParseSentiment validates a sentiment string.
func ParseSentiment(s string) (Sentiment, error) {
	switch Sentiment(strings.ToLower(strings.TrimSpace(s))) {
	case SentimentUp:
		return SentimentUp, nil
	case SentimentDown:
		return SentimentDown, nil
	}
	return "", errors.InvalidInput(fmt.Sprintf("sentiment must be %q or %q", SentimentUp, SentimentDown))
}

// HistoryEntry is one remembered search.
type HistoryEntry struct {
	Query     string         `json:"query"`
	Result    *search.Result `json:"result"`
	Timestamp time.Time      `json:"timestamp"`
}

// State is the UI state of one session.
type State struct {
	id        string
	createdAt time.Time

	mu        sync.Mutex
	lastSeen  time.Time
	history   []HistoryEntry // most recent first
	favorites map[string]bool
	feedback  map[string]Sentiment
	index     *historyIndex
}

// NewState creates empty state for a session.
func NewState(id string, now time.Time) (*State, error) {
	idx, err := newHistoryIndex()
	if err != nil {
		return nil, err
	}
	return &State{
		id:        id,
		createdAt: now,
		lastSeen:  now,
		favorites: make(map[string]bool),
		feedback:  make(map[string]Sentiment),
		index:     idx,
	}, nil
}

// ID returns the session ID.
func (s *State) ID() string { return s.id }

// CreatedAt returns when the session started.
func (s *State) CreatedAt() time.Time { return s.createdAt }

// LastSeen returns the time of the last access through the store.
func (s *State) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *State) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// AddHistory records a search at the front of the history. An older entry
// for the same query is replaced, and the list is capped at MaxHistory.
func (s *State) AddHistory(res *search.Result, at time.Time) error {
	if res == nil || strings.TrimSpace(res.Query) == "" {
		return errors.InvalidInput("history entry needs a query")
	}
	entry := HistoryEntry{Query: res.Query, Result: res.Clone(), Timestamp: at}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]HistoryEntry, 0, len(s.history)+1)
	kept = append(kept, entry)
	for _, h := range s.history {
		if h.Query != entry.Query {
			kept = append(kept, h)
		}
	}
	var evicted []HistoryEntry
	if len(kept) > MaxHistory {
		evicted = kept[MaxHistory:]
		kept = kept[:MaxHistory]
	}
	if err := s.index.update(entry, evicted); err != nil {
		return err
	}
	s.history = kept
	return nil
}

// History returns the history, most recent first.
func (s *State) History() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]HistoryEntry(nil), s.history...)
}

// HistoryAt returns the entry at position i of History.
func (s *State) HistoryAt(i int) (HistoryEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.history) {
		return HistoryEntry{}, false
	}
	return s.history[i], true
}

// SearchHistory returns the entries matching term in query or answer text,
// most recent first. An empty term returns the whole history.
func (s *State) SearchHistory(term string) ([]HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(term) == "" {
		return append([]HistoryEntry(nil), s.history...), nil
	}
	ids, err := s.index.search(term, len(s.history))
	if err != nil {
		return nil, err
	}
	var out []HistoryEntry
	for _, h := range s.history {
		if ids[h.Query] {
			out = append(out, h)
		}
	}
	return out, nil
}

// ClearHistory forgets every search.
func (s *State) ClearHistory() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := newHistoryIndex()
	if err != nil {
		return err
	}
	_ = s.index.close()
	s.index = idx
	s.history = nil
	return nil
}

// ToggleFavorite flips the favorite mark on query and returns the new value.
func (s *State) ToggleFavorite(query string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.favorites[query] {
		delete(s.favorites, query)
		return false
	}
	s.favorites[query] = true
	return true
}

// IsFavorite reports whether query is marked.
func (s *State) IsFavorite(query string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.favorites[query]
}

// Favorites returns the marked queries, sorted.
func (s *State) Favorites() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.favorites))
	for q := range s.favorites {
		out = append(out, q)
	}
	sort.Strings(out)
	return out
}

// SetFeedback records the sentiment for query, replacing any earlier one.
func (s *State) SetFeedback(query string, v Sentiment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedback[query] = v
}

// Feedback returns the sentiment recorded for query.
func (s *State) Feedback(query string) (Sentiment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.feedback[query]
	return v, ok
}

// Close releases the history index.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.close()
}
