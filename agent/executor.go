// Package agent runs the ReAct loop: the model reasons in text, picks a tool,
// reads its observation and repeats until it produces a final answer.
package agent

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/vinayprograms/nexa/llm"
	"github.com/vinayprograms/nexa/logging"
	"github.com/vinayprograms/nexa/prompt"
	"github.com/vinayprograms/nexa/tools"
)

// StoppedMessage is the answer when a run hits its budget and the closing
// generate call also fails.
const StoppedMessage = "Agent stopped due to iteration limit or time limit."

// ExceptionTool names steps that record a parse failure instead of a tool call.
const ExceptionTool = "_Exception"

const (
	observationStop   = "\nObservation:"
	finalAnswerPrompt = "\n\nI now need to return a final answer based on the previous steps:"
)

// Action is a tool call chosen by the model.
type Action struct {
	Tool      string `json:"tool"`
	ToolInput string `json:"tool_input"`
	// Log is the raw model text that produced the action.
	Log string `json:"log"`
}

// Step is one action and what it returned.
type Step struct {
	Action      Action `json:"action"`
	Observation string `json:"observation"`
}

// Input is one agent run.
type Input struct {
	Prompt           prompt.Prompt
	Question         string
	Tools            []tools.Tool
	MaxIterations    int
	MaxExecutionTime time.Duration

	// OnToken receives the final answer as it is generated.
	OnToken func(token string)
}

// Output is the result of a run.
type Output struct {
	Text         string `json:"output"`
	Steps        []Step `json:"intermediate_steps"`
	Iterations   int    `json:"iterations"`
	StoppedEarly bool   `json:"stopped_early"`
}

// Executor drives a provider through the ReAct loop.
type Executor struct {
	provider     llm.Provider
	logger       *logging.Logger
	closeTimeout time.Duration
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the executor logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithCloseTimeout bounds the closing generate call made after the budget runs out.
func WithCloseTimeout(d time.Duration) Option {
	return func(e *Executor) { e.closeTimeout = d }
}

// New creates an executor over provider.
func New(provider llm.Provider, opts ...Option) *Executor {
	e := &Executor{
		provider:     provider,
		logger:       logging.New().WithComponent("agent"),
		closeTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Invoke runs the loop until the model gives a final answer or the iteration
// or time budget is spent. Provider errors abort the run. Tool failures and
// malformed model output are fed back as observations.
func (e *Executor) Invoke(ctx context.Context, in Input) (*Output, error) {
	if in.MaxIterations <= 0 {
		in.MaxIterations = 10
	}
	if in.MaxExecutionTime <= 0 {
		in.MaxExecutionTime = 60 * time.Second
	}

	byName := make(map[string]tools.Tool, len(in.Tools))
	names := make([]string, 0, len(in.Tools))
	for _, t := range in.Tools {
		byName[t.Name()] = t
		names = append(names, t.Name())
	}

	runCtx, cancel := context.WithTimeout(ctx, in.MaxExecutionTime)
	defer cancel()

	stream := newAnswerStream(in.OnToken)
	out := &Output{}
	var scratchpad strings.Builder

	for out.Iterations < in.MaxIterations {
		if runCtx.Err() != nil {
			break
		}
		out.Iterations++

		stream.reset()
		resp, err := e.provider.Chat(runCtx, llm.ChatRequest{
			Messages: []llm.Message{{Role: "user", Content: in.Prompt.Render(in.Question, scratchpad.String())}},
			Stop:     []string{observationStop},
			OnToken:  stream.onToken(),
		})
		if err != nil {
			if budgetSpent(ctx, runCtx) {
				break
			}
			return nil, err
		}
		text := resp.Content

		p, err := parseOutput(text)
		if err != nil {
			// Models that ignore the format entirely answer directly.
			if out.Iterations == 1 && !hasMarkers(text) && strings.TrimSpace(text) != "" {
				return e.finish(out, strings.TrimSpace(text), stream), nil
			}
			var perr *parseError
			if !stderrors.As(err, &perr) {
				return nil, err
			}
			e.logger.Debug("parse_error", map[string]interface{}{"iteration": out.Iterations})
			step := Step{Action: Action{Tool: ExceptionTool, ToolInput: perr.observation, Log: text}, Observation: perr.observation}
			out.Steps = append(out.Steps, step)
			appendStep(&scratchpad, step)
			continue
		}
		if p.finish {
			return e.finish(out, p.answer, stream), nil
		}

		step := Step{Action: *p.action, Observation: e.runTool(runCtx, byName, names, p.action)}
		out.Steps = append(out.Steps, step)
		appendStep(&scratchpad, step)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.stopEarly(ctx, in, out, scratchpad.String(), stream), nil
}

// budgetSpent reports whether err came from the run's own deadline rather
// than the caller's context or the provider.
func budgetSpent(parent, run context.Context) bool {
	return parent.Err() == nil && run.Err() != nil
}

func (e *Executor) runTool(ctx context.Context, byName map[string]tools.Tool, names []string, a *Action) string {
	tool, ok := byName[a.Tool]
	if !ok {
		return fmt.Sprintf("%s is not a valid tool, try one of [%s].", a.Tool, strings.Join(names, ", "))
	}
	result, err := tool.Invoke(ctx, ToolQuery(a.ToolInput))
	if err != nil {
		return "Error: " + err.Error()
	}
	return result
}

// stopEarly makes one last call asking for a final answer from the steps so far.
func (e *Executor) stopEarly(ctx context.Context, in Input, out *Output, scratchpad string, stream *answerStream) *Output {
	out.StoppedEarly = true
	e.logger.Info("agent_budget_exhausted", map[string]interface{}{
		"iterations": out.Iterations,
		"steps":      len(out.Steps),
	})

	callCtx, cancel := context.WithTimeout(ctx, e.closeTimeout)
	defer cancel()

	stream.reset()
	resp, err := e.provider.Chat(callCtx, llm.ChatRequest{
		Messages: []llm.Message{{Role: "user", Content: in.Prompt.Render(in.Question, scratchpad+finalAnswerPrompt)}},
		Stop:     []string{observationStop},
		OnToken:  stream.onToken(),
	})
	if err != nil || strings.TrimSpace(resp.Content) == "" {
		if err != nil {
			e.logger.Warn("final_answer_failed", map[string]interface{}{"error": err.Error()})
		}
		return e.finish(out, StoppedMessage, stream)
	}

	answer := strings.TrimSpace(resp.Content)
	if p, perr := parseOutput(answer); perr == nil && p.finish {
		answer = p.answer
	}
	return e.finish(out, answer, stream)
}

func (e *Executor) finish(out *Output, answer string, stream *answerStream) *Output {
	out.Text = answer
	stream.flush(answer)
	return out
}

// appendStep renders a step the way the model expects to continue from it.
func appendStep(b *strings.Builder, s Step) {
	b.WriteString(s.Action.Log)
	b.WriteString("\nObservation: ")
	b.WriteString(s.Observation)
	b.WriteString("\nThought: ")
}
