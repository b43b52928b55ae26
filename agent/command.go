package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/rustyeddy/papertrader/report"
	"github.com/rustyeddy/papertrader/scheduler"
)

// Verb is what a console line asks for.
type Verb int

const (
	Ask Verb = iota
	Status
	Help
	Plan
	Quit
)

var verbs = map[string]Verb{
	"status":         Status,
	"portfolio":      Status,
	"balance":        Status,
	"holdings":       Status,
	"saldo":          Status,
	"portfölj":       Status,
	"help":           Help,
	"?":              Help,
	"plan":           Plan,
	"portfolio plan": Plan,
	"skapa portfölj": Plan,
	"exit":           Quit,
	"quit":           Quit,
	"bye":            Quit,
}

// ParseCommand classifies one console line. Anything that is not a
// known keyword is a question for the responder.
func ParseCommand(line string) Verb {
	if v, ok := verbs[strings.ToLower(strings.TrimSpace(line))]; ok {
		return v
	}
	return Ask
}

const helpText = `commands:
  status    show cash, holdings and total value
  plan      propose a starting portfolio (advice only, nothing is traded)
  help      this text
  exit      stop the agent
anything else is sent to the oracle as a question
`

// HandleCommand is the scheduler.Handler for console input.
func (a *Agent) HandleCommand(ctx context.Context, c scheduler.Command) error {
	if c.Exit {
		return scheduler.ErrShutdown
	}
	log.Printf("[CMD] %q", c.Text)

	switch ParseCommand(c.Text) {
	case Quit:
		return scheduler.ErrShutdown
	case Status:
		return a.PrintStatus(ctx)
	case Help:
		_, err := fmt.Fprint(a.Out, helpText)
		return err
	case Plan:
		_, err := a.ProposePlan(ctx)
		switch {
		case errors.Is(err, errNoPlanner):
			_, err = fmt.Fprintln(a.Out, "no oracle configured; try 'help'")
		case err != nil:
			log.Printf("[ORACLE] plan: %v", err)
			_, err = fmt.Fprintln(a.Out, "the oracle could not make a plan, try again later")
		}
		return err
	}

	if a.Responder == nil {
		_, err := fmt.Fprintln(a.Out, "no oracle configured; try 'help'")
		return err
	}
	v, err := a.Valuation(ctx)
	if err != nil {
		return err
	}
	rctx, cancel := context.WithTimeout(ctx, a.timeout())
	defer cancel()
	answer, err := a.Responder.Respond(rctx, c.Text, report.Status(v))
	if err != nil {
		log.Printf("[ORACLE] respond: %v", err)
		_, err = fmt.Fprintln(a.Out, "the oracle did not answer, try again later")
		return err
	}
	_, err = fmt.Fprintln(a.Out, strings.TrimSpace(answer))
	return err
}
