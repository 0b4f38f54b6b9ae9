package docqa

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/k0kubun/pp"

	"github.com/mwiater/docqa/internal/qa"
)

var (
	labelText   = color.New(color.Bold).SprintFunc()
	correctText = color.New(color.FgGreen).SprintFunc()
	failedText  = color.New(color.FgRed).SprintFunc()
	faintText   = color.New(color.Faint).SprintFunc()
)

func runAsk(ctx context.Context, out io.Writer, question string, dump bool) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return fmt.Errorf("question is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	agent, err := newAgent()
	if err != nil {
		return err
	}
	defer agent.Close()

	state, err := agent.Ask(ctx, question)
	printState(out, state, err)
	if dump {
		pp.Fprintln(out, state)
	}
	return err
}

// printState renders a pipeline result for the terminal.
func printState(out io.Writer, state qa.State, err error) {
	fmt.Fprintf(out, "%s %s\n", labelText("Question:"), state.Question)
	if err != nil {
		fmt.Fprintf(out, "%s %s\n", labelText("Answer:  "), failedText("Error: "+err.Error()))
		return
	}
	fmt.Fprintf(out, "%s %s\n", labelText("Answer:  "), state.Answer)

	if ev := state.Evaluation; ev != nil {
		verdict := failedText(ev.Verdict.String())
		if ev.IsCorrect() {
			verdict = correctText(ev.Verdict.String())
		}
		fmt.Fprintf(out, "%s %s\n", labelText("Verdict: "), verdict)
	}

	if loc := state.Localization; loc != nil {
		if loc.Found() {
			fmt.Fprintf(out, "%s page %d, passage %d: %q\n", labelText("Evidence:"), loc.PageIndex+1, loc.ChunkIndex+1, loc.RelevantText)
		} else {
			fmt.Fprintf(out, "%s %s\n", labelText("Evidence:"), faintText("not found in the retrieved passages"))
		}
	}
	fmt.Fprintf(out, "%s %d\n", labelText("Passages:"), len(state.Context))
}
