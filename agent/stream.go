package agent

import "strings"

// answerStream forwards only the final-answer part of each model turn.
// Reasoning and tool calls are held back. If a turn never streams an answer,
// flush delivers it in one piece.
type answerStream struct {
	emit func(string)

	turn      strings.Builder
	started   bool
	trimLeft  bool
	delivered bool
}

func newAnswerStream(emit func(string)) *answerStream {
	return &answerStream{emit: emit}
}

// onToken returns the callback for one provider call, or nil when the
// caller does not stream.
func (s *answerStream) onToken() func(string) {
	if s.emit == nil {
		return nil
	}
	return s.write
}

func (s *answerStream) reset() {
	s.turn.Reset()
	s.started = false
	s.delivered = false
}

func (s *answerStream) write(tok string) {
	if s.started {
		s.send(tok)
		return
	}
	s.turn.WriteString(tok)
	text := s.turn.String()
	i := strings.Index(text, finalAnswerMarker)
	if i < 0 {
		return
	}
	s.started = true
	s.trimLeft = true
	s.send(text[i+len(finalAnswerMarker):])
}

func (s *answerStream) send(tok string) {
	if s.trimLeft {
		tok = strings.TrimLeft(tok, " \t\n")
		if tok == "" {
			return
		}
		s.trimLeft = false
	}
	s.delivered = true
	s.emit(tok)
}

// flush emits answer whole if nothing was streamed for it.
func (s *answerStream) flush(answer string) {
	if s.emit == nil || s.delivered || answer == "" {
		return
	}
	s.delivered = true
	s.emit(answer)
}
