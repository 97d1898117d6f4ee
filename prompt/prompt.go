// Package prompt builds the ReAct instruction prompt for a search.
package prompt

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/vinayprograms/nexa/tools"
)

//go:embed react.gotmpl
var reactTpl string

var reactTemplate = template.Must(template.New("react").Parse(reactTpl))

// Placeholders left in Prompt.Text for Render.
const (
	InputPlaceholder      = "{input}"
	ScratchpadPlaceholder = "{agent_scratchpad}"
)

// Input selects what goes into the prompt.
type Input struct {
	Tools    []tools.Tool
	Mode     Mode
	Language Language
}

// Prompt is a built prompt ready to render per turn.
type Prompt struct {
	Text      string
	ToolList  string
	ToolNames string
	Mode      Mode
	Language  Language
	Budget    Budget
}

// Build renders the instruction template. It is a pure function of in.
func Build(in Input) Prompt {
	mode := ParseMode(string(in.Mode))
	lang := ParseLanguage(string(in.Language))

	lines := make([]string, 0, len(in.Tools))
	names := make([]string, 0, len(in.Tools))
	for _, t := range in.Tools {
		lines = append(lines, fmt.Sprintf("%s: %s", t.Name(), t.Description()))
		names = append(names, t.Name())
	}

	p := Prompt{
		ToolList:  strings.Join(lines, "\n"),
		ToolNames: strings.Join(names, ", "),
		Mode:      mode,
		Language:  lang,
		Budget:    mode.Budget(),
	}

	var buf bytes.Buffer
	// The template only reads fields of a plain struct, so Execute cannot fail.
	_ = reactTemplate.Execute(&buf, struct {
		ToolList            string
		ToolNames           string
		ModePhrase          string
		LanguageInstruction string
	}{p.ToolList, p.ToolNames, mode.Phrase(), lang.Instruction()})
	p.Text = strings.TrimRight(buf.String(), "\n")
	return p
}

// Render substitutes the question and scratchpad into the prompt. Values are
// inserted verbatim, so braces in user text are safe.
func (p Prompt) Render(question, scratchpad string) string {
	return strings.NewReplacer(
		InputPlaceholder, question,
		ScratchpadPlaceholder, scratchpad,
	).Replace(p.Text)
}
