package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"quantforge/internal/runner"
)

// convertFullPrecision produces the full-precision GGUF file every later
// stage quantizes from. The convert script has been seen exiting zero without
// writing its output, so the file's existence is checked rather than trusting
// the exit status.
func (p *Pipeline) convertFullPrecision(ctx context.Context) error {
	fp := p.layout.FullPrecisionPath()
	slog.Info("converting to full precision", "model", p.layout.Name, "precision", p.layout.Precision)

	step := runner.Step{
		Prog: "python3",
		Args: []string{
			filepath.Join(p.opts.LlamaPath, "convert_hf_to_gguf.py"),
			p.layout.Dir(),
			"--outtype", p.layout.Precision.String(),
			"--outfile", fp,
		},
	}
	if err := p.runner.Run(ctx, step); err != nil {
		return errors.Wrap(err, "converting to full precision")
	}

	if _, err := os.Stat(fp); err != nil {
		return errors.Wrapf(ErrVerificationFailed, "conversion reported success but %s is missing", fp)
	}

	slog.Info("conversion complete", "output", fp)
	return nil
}
