package intake

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
)

// Runner drives one session over line-oriented IO until the flow completes.
// This allows for easy testing and integration with different frontends (CLI, TUI, etc).
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ContentRenderer
}

// ContentRenderer transforms a message before it is written.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// NewRunner creates a Runner over the given reader and writer.
func NewRunner(in io.Reader, out io.Writer) *Runner {
	return &Runner{Input: in, Output: out}
}

// Run converses on sessionID, creating a session when it is empty, and returns
// the last result. It stops on completion, EOF, or an "exit"/"quit" line.
func (r *Runner) Run(ctx context.Context, engine ports.FlowEngine, sessionID string) (*domain.Result, error) {
	if r.Input == nil {
		return nil, fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return nil, fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	lines := bufio.NewReader(r.Input)

	if sessionID == "" {
		id, err := engine.CreateSession(ctx)
		if err != nil {
			return nil, err
		}
		sessionID = id
	}

	input := ""
	for {
		res, err := engine.ProcessTurn(ctx, sessionID, input)
		if err != nil {
			return nil, fmt.Errorf("turn error: %w", err)
		}
		r.print(res.Message)

		if res.IsComplete {
			return res, nil
		}

		if !r.Headless {
			fmt.Fprint(r.Output, "> ")
		}
		text, err := lines.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return res, fmt.Errorf("input error: %w", err)
		}
		input = strings.TrimSpace(text)
		if errors.Is(err, io.EOF) && input == "" {
			return res, nil
		}

		if input == "exit" || input == "quit" {
			fmt.Fprintln(r.Output, "Bye!")
			return res, nil
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
	}
}

func (r *Runner) print(msg string) {
	output := msg
	if r.Renderer != nil {
		if rendered, err := r.Renderer(msg); err == nil {
			output = rendered
		}
	}
	fmt.Fprintln(r.Output, strings.TrimSpace(output))
}
