package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vinayprograms/nexa/search"
)

// Event names shared by the SSE and WebSocket streams.
const (
	eventToken  = "token"
	eventResult = "result"
	eventError  = "error"
)

// sseWriter writes named Server-Sent Events.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	return &sseWriter{w: w, flusher: flusher}, true
}

func (s *sseWriter) send(event string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// tokenPayload carries one streamed chunk of the answer.
type tokenPayload struct {
	Token string `json:"token"`
}

// handleSearchStream runs a search from URL parameters, streaming answer
// tokens and then the full result.
func (s *Server) handleSearchStream(w http.ResponseWriter, r *http.Request) {
	st, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	sse, ok := newSSEWriter(w)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	sse.flusher.Flush()

	req := s.toRequest(searchRequestFromQuery(r))
	res := s.engine.Run(r.Context(), req,
		search.WithSession(st.ID()),
		search.WithStream(func(token string) {
			_ = sse.send(eventToken, tokenPayload{Token: token})
		}))
	s.record(st, res)
	_ = sse.send(eventResult, res)
}

const (
	wsWriteTimeout   = 10 * time.Second
	wsMaxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// wsMessage is a client frame. Type "search" carries a searchRequest.
type wsMessage struct {
	Type string `json:"type"`
	searchRequest
}

// wsFrame is a server frame.
type wsFrame struct {
	Type   string         `json:"type"`
	Token  string         `json:"token,omitempty"`
	Result *search.Result `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// handleWebSocket serves searches over one connection, one at a time.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	st, cookie, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	header := http.Header{}
	if cookie != nil {
		header.Add("Set-Cookie", cookie.String())
	}
	conn, err := upgrader.Upgrade(w, r, header)
	if err != nil {
		// Upgrade has already written the HTTP error.
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessageSize)

	logger := requestLogger(r.Context(), s.logger)
	write := func(f wsFrame) error {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(f)
	}

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("websocket_read_failed", map[string]interface{}{"error": err.Error()})
			}
			return
		}
		if msg.Type != "search" {
			if err := write(wsFrame{Type: eventError, Error: fmt.Sprintf("unknown message type %q", msg.Type)}); err != nil {
				return
			}
			continue
		}

		var writeErr error
		res := s.engine.Run(r.Context(), s.toRequest(msg.searchRequest),
			search.WithSession(st.ID()),
			search.WithStream(func(token string) {
				if writeErr == nil {
					writeErr = write(wsFrame{Type: eventToken, Token: token})
				}
			}))
		s.record(st, res)
		if writeErr != nil {
			return
		}
		if err := write(wsFrame{Type: eventResult, Result: res}); err != nil {
			return
		}
	}
}
