package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/intake"
	"github.com/aretw0/intake/internal/presentation/tui"
	"github.com/aretw0/intake/pkg/domain"
	"golang.org/x/term"
)

// ChatOptions configures an interactive session.
type ChatOptions struct {
	SessionID string
	// Headless disables the banner, prompt and markdown rendering.
	Headless bool
	In       io.Reader
	Out      io.Writer
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Chat runs the dialogue over the given streams and prints the summary when
// the session completes.
func Chat(ctx context.Context, eng *intake.Engine, opts ChatOptions) (*domain.Result, error) {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	// Piped input is answered line by line without decoration.
	headless := opts.Headless || !isTerminal(opts.In)

	r := intake.NewRunner(opts.In, opts.Out)
	r.Headless = headless
	if !headless {
		tui.PrintBanner(opts.Out, intake.Version)
		r.Renderer = tui.NewRenderer()
	}

	res, err := r.Run(ctx, eng, opts.SessionID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(opts.Out, ">>> Interrupted.")
			return res, nil
		}
		return res, err
	}

	if res != nil && res.Summary != nil {
		summary := tui.SummaryMarkdown(res.Summary)
		if !headless {
			if rendered, err := tui.NewRenderer()(summary); err == nil {
				summary = rendered
			}
		}
		fmt.Fprintln(opts.Out, summary)
	}
	return res, nil
}
