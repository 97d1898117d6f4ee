package agent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

const (
	finalAnswerMarker = "Final Answer:"

	missingActionMsg      = "Invalid Format: Missing 'Action:' after 'Thought:'"
	missingActionInputMsg = "Invalid Format: Missing 'Action Input:' after 'Action:'"
)

var (
	actionRe      = regexp.MustCompile(`(?s)Action\s*\d*\s*:[\s]*(.*?)[\s]*Action\s*\d*\s*Input\s*\d*\s*:[\s]*(.*)`)
	actionOnlyRe  = regexp.MustCompile(`(?s)Action\s*\d*\s*:[\s]*(.*?)`)
	actionInputRe = regexp.MustCompile(`(?s)[\s]*Action\s*\d*\s*Input\s*\d*\s*:[\s]*(.*)`)
	markerRe      = regexp.MustCompile(`(?m)^\s*(Thought|Action|Action Input|Observation|Final Answer)\s*:`)
)

// parsed is one interpreted model turn. Exactly one of finish or action is
// set unless err is non-nil.
type parsed struct {
	finish bool
	answer string
	action *Action
}

// parseError is a recoverable format problem. Its message becomes the
// observation sent back to the model.
type parseError struct {
	observation string
	output      string
}

func (e *parseError) Error() string {
	return fmt.Sprintf("could not parse LLM output: %s", e.output)
}

// parseOutput interprets a ReAct turn. A final answer wins over an action.
func parseOutput(text string) (*parsed, error) {
	if i := strings.Index(text, finalAnswerMarker); i >= 0 {
		return &parsed{finish: true, answer: strings.TrimSpace(text[i+len(finalAnswerMarker):])}, nil
	}

	if m := actionRe.FindStringSubmatch(text); m != nil {
		tool := strings.TrimSpace(m[1])
		input := strings.Trim(strings.TrimSpace(m[2]), `"`)
		return &parsed{action: &Action{Tool: tool, ToolInput: input, Log: text}}, nil
	}

	if !actionOnlyRe.MatchString(text) {
		return nil, &parseError{observation: missingActionMsg, output: text}
	}
	if !actionInputRe.MatchString(text) {
		return nil, &parseError{observation: missingActionInputMsg, output: text}
	}
	return nil, &parseError{observation: "Invalid Format: " + strings.TrimSpace(text), output: text}
}

// hasMarkers reports whether text uses any ReAct keyword at line start.
func hasMarkers(text string) bool {
	return markerRe.MatchString(text)
}

// ToolQuery extracts the query from an Action Input. JSON objects such as
// {"query": "..."} are accepted and repaired when malformed. Anything else is
// used verbatim.
func ToolQuery(input string) string {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "{") {
		return input
	}

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(input), &obj); err != nil {
		fixed, rerr := jsonrepair.JSONRepair(input)
		if rerr != nil {
			return input
		}
		if err := json.Unmarshal([]byte(fixed), &obj); err != nil {
			return input
		}
	}

	for _, key := range []string{"query", "input", "q", "search_query", "tool_input"} {
		if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	if len(obj) == 1 {
		for _, v := range obj {
			if s, ok := v.(string); ok {
				return strings.TrimSpace(s)
			}
		}
	}
	return input
}
