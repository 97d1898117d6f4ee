package main

import (
	"testing"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"serve", "ask", "models", "tools"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("Find(%q) = %v, %v", name, cmd, err)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Error("missing --config flag")
	}
}

func TestAskRequiresQuestion(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"ask"})
	if err := root.Execute(); err == nil {
		t.Error("ask without a question succeeded")
	}
}

func TestFirstNonEmpty(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{[]string{"", "balanced"}, "balanced"},
		{[]string{"quick", "balanced"}, "quick"},
		{[]string{"", ""}, ""},
	}
	for _, tt := range tests {
		if got := firstNonEmpty(tt.in...); got != tt.want {
			t.Errorf("firstNonEmpty(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
