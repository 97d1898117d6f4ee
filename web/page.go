package web

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/vinayprograms/nexa/prompt"
	"github.com/vinayprograms/nexa/tools"
)

//go:embed templates/*
var templatesFS embed.FS

var indexTmpl = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

// Suggestions are the example queries offered on an empty page.
var Suggestions = []string{
	"💡 Latest developments in AI",
	"🔬 Quantum computing explained",
	"🌍 Climate change research",
	"🚀 SpaceX recent launches",
}

type modeOption struct {
	Value      prompt.Mode
	Iterations int
	Selected   bool
}

type languageOption struct {
	Code     prompt.Language
	Name     string
	Native   string
	Selected bool
}

type pageData struct {
	Model       string
	Tools       []tools.Descriptor
	Modes       []modeOption
	Languages   []languageOption
	Suggestions []string
}

func (s *Server) pageData() pageData {
	data := pageData{
		Model:       s.engine.Model(),
		Tools:       s.engine.Registry().Descriptors(),
		Suggestions: Suggestions,
	}
	for _, m := range prompt.AllModes() {
		data.Modes = append(data.Modes, modeOption{
			Value:      m,
			Iterations: m.Budget().MaxIterations,
			Selected:   m == s.config.DefaultMode,
		})
	}
	for _, l := range prompt.AllLanguages() {
		data.Languages = append(data.Languages, languageOption{
			Code:     l,
			Name:     l.Name(),
			Native:   l.NativeName(),
			Selected: l == s.config.DefaultLanguage,
		})
	}
	return data
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.sessionFor(w, r); !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, s.pageData()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
