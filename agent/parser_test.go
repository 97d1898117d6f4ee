package agent

import (
	stderrors "errors"
	"testing"
)

func TestParseOutput(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		finish   bool
		answer   string
		tool     string
		input    string
		parseErr string
	}{
		{name: "final", text: "Thought: done\nFinal Answer: Paris", finish: true, answer: "Paris"},
		{name: "final wins", text: "Action: web_search\nAction Input: x\nFinal Answer: y", finish: true, answer: "y"},
		{name: "action", text: " search\nAction: web_search\nAction Input: \"capital of France\"", tool: "web_search", input: "capital of France"},
		{name: "numbered", text: "Action 1: arxiv_search\nAction 1 Input: transformers", tool: "arxiv_search", input: "transformers"},
		{name: "no action", text: "Thought: hmm", parseErr: missingActionMsg},
		{name: "no input", text: "Action: web_search", parseErr: missingActionInputMsg},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := parseOutput(tt.text)
			if tt.parseErr != "" {
				var perr *parseError
				if !stderrors.As(err, &perr) || perr.observation != tt.parseErr {
					t.Fatalf("err = %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if p.finish != tt.finish || p.answer != tt.answer {
				t.Errorf("finish=%v answer=%q", p.finish, p.answer)
			}
			if !tt.finish && (p.action.Tool != tt.tool || p.action.ToolInput != tt.input) {
				t.Errorf("action = %+v", p.action)
			}
		})
	}
}

func TestToolQuery(t *testing.T) {
	tests := map[string]string{
		"plain query":                "plain query",
		`{"query": "black holes"}`:   "black holes",
		`{"query": "black holes"`:    "black holes",
		`{'query': 'single quotes'}`: "single quotes",
		`{"topic": "only value"}`:    "only value",
		`{"a": "x", "b": "y"}`:       `{"a": "x", "b": "y"}`,
		"  padded  ":                 "padded",
	}
	for in, want := range tests {
		if got := ToolQuery(in); got != want {
			t.Errorf("ToolQuery(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHasMarkers(t *testing.T) {
	if !hasMarkers("Thought: x") || !hasMarkers("foo\nFinal Answer: y") {
		t.Error("expected markers")
	}
	if hasMarkers("Paris is the capital.") {
		t.Error("plain prose has no markers")
	}
}
