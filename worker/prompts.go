package worker

import (
	"fmt"
	"strings"

	"github.com/snow-ghost/sleuth/core"
)

// solvedExample is a settled question with the hypothesis that solved it.
type solvedExample struct {
	Question   string
	Hypothesis string
}

// triedHypothesis is a previous hypothesis of the same question with the
// outcome of each of its tasks.
type triedHypothesis struct {
	Description string
	Status      core.HypothesisStatus
	Tasks       []core.Task
}

// attemptState carries what the previous synthesis attempt left behind.
type attemptState struct {
	code string
	err  string
	hint string
}

func (s attemptState) empty() bool { return s.code == "" && s.err == "" && s.hint == "" }

func hypothesisPrompt(question string, solved []solvedExample, tried []triedHypothesis) string {
	var b strings.Builder
	b.WriteString("You propose falsifiable hypotheses that answer research questions.\n\n")
	if len(solved) > 0 {
		b.WriteString("Questions answered before, with the hypothesis that was verified:\n")
		for _, s := range solved {
			fmt.Fprintf(&b, "Q: %s\nH: %s\n", s.Question, s.Hypothesis)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	if len(tried) > 0 {
		b.WriteString("Hypotheses already tried for this question. Do not repeat them:\n")
		for _, h := range tried {
			fmt.Fprintf(&b, "- %s (%s)\n", h.Description, h.Status)
			for _, t := range h.Tasks {
				fmt.Fprintf(&b, "  task: %s -> %s %s\n", t.Description, t.Status, t.ResultText())
			}
		}
		b.WriteString("\n")
	}
	b.WriteString("Write one hypothesis per line. Each hypothesis is a single declarative sentence ending with a period. ")
	b.WriteString("Name concrete entities; never generalize with words like \"all\", \"others\" or \"etc\".\n")
	return b.String()
}

func questionPrompt(solved []string, open []string) string {
	var b strings.Builder
	b.WriteString("You propose new research questions that can be settled with data.\n\n")
	if len(solved) > 0 {
		b.WriteString("Questions answered before:\n")
		for _, q := range solved {
			fmt.Fprintf(&b, "- %s\n", q)
		}
		b.WriteString("\n")
	}
	if len(open) > 0 {
		b.WriteString("Questions already queued:\n")
		for _, q := range open {
			fmt.Fprintf(&b, "- %s\n", q)
		}
		b.WriteString("\n")
	}
	b.WriteString("Write one new question per line, each ending with a question mark. ")
	b.WriteString("Ask about concrete, named entities only.\n")
	return b.String()
}

func planPrompt(question, hypothesis string, executed []string) string {
	var b strings.Builder
	b.WriteString("You break a claim into atomic tasks. Each task is checked by a program that returns true or false.\n\n")
	fmt.Fprintf(&b, "Question: %s\n", question)
	if hypothesis != "" {
		fmt.Fprintf(&b, "Hypothesis: %s\n", hypothesis)
	}
	b.WriteString("\n")
	if len(executed) > 0 {
		b.WriteString("Tasks already executed for this question:\n")
		for _, t := range executed {
			fmt.Fprintf(&b, "- %s\n", t)
		}
		b.WriteString("\n")
	}
	b.WriteString("Write one task per line as a declarative sentence ending with a period. ")
	b.WriteString("Every task must be true exactly when the hypothesis holds for one specific fact. ")
	b.WriteString("Never use words like \"all\", \"others\" or \"etc\".\n")
	return b.String()
}

func synthesisPrompt(description string, exemplars []string, state attemptState, dirs []string) string {
	var b strings.Builder
	b.WriteString("You write Go programs that check one fact and return a boolean verdict.\n\n")
	if len(exemplars) > 0 {
		b.WriteString("Existing skills for similar tasks:\n\n")
		for _, e := range exemplars {
			b.WriteString(e)
			b.WriteString("\n")
		}
	}
	fmt.Fprintf(&b, "Task: %s\n\n", description)
	b.WriteString("Rules:\n")
	fmt.Fprintf(&b, "1. The first line is exactly: // %s: %s\n", core.HeaderDescription, description)
	fmt.Fprintf(&b, "2. The second line is: // %s: <relative path of the file inside the skill tree>\n", core.HeaderFilePath)
	b.WriteString("3. Declare exactly one exported entry point: func Run() (bool, error)\n")
	b.WriteString("4. Use only the Go standard library.\n")
	b.WriteString("5. Answer with a single fenced ```go code block.\n")
	if len(dirs) > 0 {
		fmt.Fprintf(&b, "Existing directories of the skill tree: %s\n", strings.Join(dirs, ", "))
	}
	if !state.empty() {
		b.WriteString("\nThe previous attempt failed.\n")
		if state.code != "" {
			fmt.Fprintf(&b, "Previous code:\n```go\n%s\n```\n", strings.TrimRight(state.code, "\n"))
		}
		if state.err != "" {
			fmt.Fprintf(&b, "Error:\n%s\n", state.err)
		}
		if state.hint != "" {
			fmt.Fprintf(&b, "Hint: %s\n", state.hint)
		}
	}
	return b.String()
}

func renderExemplar(s core.Skill) string {
	return "```go\n" + strings.TrimRight(s.Code, "\n") + "\n```\n"
}
