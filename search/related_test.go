package search

import (
	"reflect"
	"testing"
)

func TestRelatedQuestions(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"What is gravity?", []string{"How is gravity?", "Why is gravity?"}},
		{"how do planes fly", []string{"what do planes fly", "why do planes fly"}},
		{"WHY is the sky blue?", []string{"What is the sky blue?", "How is the sky blue?"}},
		{"Explain gravity", []string{
			"How does Explain gravity work?",
			"What are the benefits of Explain gravity?",
			"Recent developments in Explain gravity",
		}},
		{"quantum computing?", []string{
			"How does quantum computing work?",
			"What are the benefits of quantum computing?",
			"Recent developments in quantum computing",
		}},
		{"Whatever happened to Pluto", []string{
			"How does Whatever happened to Pluto work?",
			"What are the benefits of Whatever happened to Pluto?",
			"Recent developments in Whatever happened to Pluto",
		}},
		{"   ", nil},
	}
	for _, tt := range tests {
		got := RelatedQuestions(tt.query)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("RelatedQuestions(%q) = %q, want %q", tt.query, got, tt.want)
		}
		if len(got) > 3 {
			t.Errorf("RelatedQuestions(%q) returned %d suggestions", tt.query, len(got))
		}
	}
}
