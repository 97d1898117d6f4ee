package prompt

import (
	"strings"
	"time"
)

// Mode selects how much tool use a search may spend.
type Mode string

const (
	Quick    Mode = "quick"
	Balanced Mode = "balanced"
	Deep     Mode = "deep"
)

// Budget bounds one agent run.
type Budget struct {
	MaxIterations    int
	MaxExecutionTime time.Duration
}

type modeInfo struct {
	budget Budget
	phrase string
}

var modes = map[Mode]modeInfo{
	Quick: {
		budget: Budget{MaxIterations: 3, MaxExecutionTime: 60 * time.Second},
		phrase: "Keep tool usage to 1 call maximum",
	},
	Balanced: {
		budget: Budget{MaxIterations: 10, MaxExecutionTime: 60 * time.Second},
		phrase: "Keep tool usage to 1-2 calls maximum",
	},
	Deep: {
		budget: Budget{MaxIterations: 15, MaxExecutionTime: 90 * time.Second},
		phrase: "Use as many tool calls as needed to be thorough",
	},
}

// AllModes lists the modes from fastest to most thorough.
func AllModes() []Mode {
	return []Mode{Quick, Balanced, Deep}
}

// ParseMode normalizes user input. Anything unrecognized is Balanced.
func ParseMode(s string) Mode {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := modes[m]; ok {
		return m
	}
	return Balanced
}

func (m Mode) info() modeInfo {
	if info, ok := modes[m]; ok {
		return info
	}
	return modes[Balanced]
}

// Budget returns the iteration and wall-clock limits for the mode.
func (m Mode) Budget() Budget { return m.info().budget }

// Phrase returns the tool-usage instruction for the mode.
func (m Mode) Phrase() string { return m.info().phrase }

func (m Mode) String() string { return string(m) }
