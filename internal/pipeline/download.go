package pipeline

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"quantforge/internal/runner"
)

// downloadModel fetches the model's source files from the hub into the
// output directory.
func (p *Pipeline) downloadModel(ctx context.Context) error {
	slog.Info("downloading model", "model", p.layout.ModelID)

	args := []string{"download", p.layout.ModelID, "--local-dir", "./" + p.layout.Dir()}
	if !p.opts.Verbose {
		args = append(args, "--quiet")
	}

	step := runner.Step{Prog: "huggingface-cli", Args: args}
	if err := p.runner.Run(ctx, step); err != nil {
		return errors.Wrapf(err, "downloading %s", p.layout.ModelID)
	}

	slog.Info("download complete", "model", p.layout.ModelID)
	return nil
}
