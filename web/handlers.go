package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/vinayprograms/nexa/errors"
	"github.com/vinayprograms/nexa/prompt"
	"github.com/vinayprograms/nexa/search"
	"github.com/vinayprograms/nexa/session"
	"github.com/vinayprograms/nexa/telemetry"
	"github.com/vinayprograms/nexa/tools"
)

const maxBodyBytes = 1 << 20

// searchRequest is the JSON body of a search.
type searchRequest struct {
	Query    string   `json:"query"`
	Mode     string   `json:"mode,omitempty"`
	Sources  []string `json:"sources,omitempty"`
	Language string   `json:"language,omitempty"`
	UseCache *bool    `json:"use_cache,omitempty"`
}

// toRequest applies the server defaults. Source names are normalized where
// they parse; unknown names are passed through so the engine can reject them.
func (s *Server) toRequest(in searchRequest) search.Request {
	req := search.Request{
		Query:    strings.TrimSpace(in.Query),
		Mode:     s.config.DefaultMode,
		Language: s.config.DefaultLanguage,
		UseCache: in.UseCache == nil || *in.UseCache,
	}
	if in.Mode != "" {
		req.Mode = prompt.ParseMode(in.Mode)
	}
	if in.Language != "" {
		req.Language = prompt.ParseLanguage(in.Language)
	}
	for _, name := range in.Sources {
		if strings.TrimSpace(name) == "" {
			continue
		}
		id, err := tools.ParseToolID(name)
		if err != nil {
			id = tools.ToolID(name)
		}
		req.Sources = append(req.Sources, id)
	}
	return req
}

// searchRequestFromQuery reads a search from URL parameters. Sources are
// comma separated.
func searchRequestFromQuery(r *http.Request) searchRequest {
	q := r.URL.Query()
	in := searchRequest{
		Query:    q.Get("q"),
		Mode:     q.Get("mode"),
		Language: q.Get("lang"),
	}
	if v := q.Get("sources"); v != "" {
		in.Sources = strings.Split(v, ",")
	}
	if v := q.Get("cache"); v != "" {
		if on, err := strconv.ParseBool(v); err == nil {
			in.UseCache = &on
		}
	}
	return in
}

// record adds a successful result to the session history.
func (s *Server) record(st *session.State, res *search.Result) {
	if !res.Success {
		return
	}
	if err := st.AddHistory(res, s.now()); err != nil {
		s.logger.Warn("history_add_failed", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var in searchRequest
	if !decodeJSON(w, r, &in, s) {
		return
	}
	st, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	res := s.engine.Run(r.Context(), s.toRequest(in), search.WithSession(st.ID()))
	s.record(st, res)
	writeJSON(w, http.StatusOK, res)
}

// historyItem is a history entry with its session marks.
type historyItem struct {
	Index     int    `json:"index"`
	Query     string `json:"query"`
	Timestamp string `json:"timestamp"`
	Favorite  bool   `json:"favorite"`
	Feedback  string `json:"feedback,omitempty"`

	Result *search.Result `json:"result"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	st, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	entries, err := st.SearchHistory(r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	// Index refers to the position in the full history, for export.
	positions := make(map[string]int)
	for i, h := range st.History() {
		positions[h.Query] = i
	}
	items := make([]historyItem, 0, len(entries))
	for _, h := range entries {
		fb, _ := st.Feedback(h.Query)
		items = append(items, historyItem{
			Index:     positions[h.Query],
			Query:     h.Query,
			Timestamp: h.Timestamp.Format("2006-01-02 15:04:05"),
			Favorite:  st.IsFavorite(h.Query),
			Feedback:  string(fb),
			Result:    h.Result,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"history":   items,
		"favorites": st.Favorites(),
	})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	st, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	if err := st.ClearHistory(); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFavorite(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Query string `json:"query"`
	}
	if !decodeJSON(w, r, &in, s) {
		return
	}
	if strings.TrimSpace(in.Query) == "" {
		s.writeError(w, errors.InvalidInput("query is required"))
		return
	}
	st, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"query":    in.Query,
		"favorite": st.ToggleFavorite(in.Query),
	})
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Query     string `json:"query"`
		Sentiment string `json:"sentiment"`
	}
	if !decodeJSON(w, r, &in, s) {
		return
	}
	if strings.TrimSpace(in.Query) == "" {
		s.writeError(w, errors.InvalidInput("query is required"))
		return
	}
	sentiment, err := session.ParseSentiment(in.Sentiment)
	if err != nil {
		s.writeError(w, err)
		return
	}
	st, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	st.SetFeedback(in.Query, sentiment)
	s.events.LogFeedback(telemetry.FeedbackRecord{
		SessionID: st.ID(),
		Query:     in.Query,
		Sentiment: string(sentiment),
		Timestamp: s.now(),
	})
	s.logger.Info("feedback", map[string]interface{}{"query": in.Query, "sentiment": string(sentiment)})
	writeJSON(w, http.StatusOK, map[string]string{"query": in.Query, "sentiment": string(sentiment)})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	st, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	index := 0
	if v := q.Get("index"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, errors.InvalidInput("index must be an integer"))
			return
		}
		index = n
	}
	entry, found := st.HistoryAt(index)
	if !found {
		s.writeError(w, errors.New(errors.ErrCodeNotFound, fmt.Sprintf("no history entry at index %d", index)))
		return
	}

	now := s.now()
	stamp := now.Format("20060102_150405")
	switch format := q.Get("format"); format {
	case "", "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="nexa_search_%s.txt"`, stamp))
		io.WriteString(w, session.ExportText(entry.Result, now))
	case "json":
		data, err := session.ExportJSON(entry.Result, now)
		if err != nil {
			s.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="nexa_search_%s.json"`, stamp))
		w.Write(data)
	default:
		s.writeError(w, errors.InvalidInput(fmt.Sprintf("unknown export format %q", format)))
	}
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tools": s.engine.Registry().Descriptors(),
	})
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.engine.ClearCache()
	s.logger.Info("cache_cleared")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"model":  s.engine.Model(),
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}, s *Server) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		s.writeError(w, errors.InvalidInput("malformed JSON body", errors.WithCause(err)))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	se := errors.AsSearchError(err)
	if se == nil {
		se = errors.Wrap(err, "request failed")
	}
	status := se.Code().HTTPStatus()
	if status >= http.StatusInternalServerError {
		s.logger.Error("request_failed", map[string]interface{}{"error": err.Error()})
	}
	writeJSON(w, status, map[string]interface{}{"error": se})
}
