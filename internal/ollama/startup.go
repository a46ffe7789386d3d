package ollama

import (
	"context"
	"errors"
	"fmt"
	"io"
)

var ErrNotRunning = errors.New("Ollama is not running. Start it with: ollama serve")

// EnsureReady makes sure the server is up and model is installed, pulling it
// if needed. Progress goes to w.
func EnsureReady(ctx context.Context, c *Client, model string, w io.Writer) error {
	if !c.IsRunning(ctx) {
		return ErrNotRunning
	}
	if !c.HasModel(ctx, model) {
		fmt.Fprintf(w, "model %s: pulling...\n", model)
		if err := c.PullModel(ctx, model, progressPrinter(w)); err != nil {
			return fmt.Errorf("pulling model %s: %w", model, err)
		}
	}
	fmt.Fprintf(w, "model %s: ready\n", model)
	return nil
}

func progressPrinter(w io.Writer) func(PullProgress) {
	return func(p PullProgress) {
		if p.Total <= 0 {
			fmt.Fprintf(w, "  %s\n", p.Status)
			return
		}
		fmt.Fprintf(w, "  %s %d%%\n", p.Status, p.Completed*100/p.Total)
	}
}
