package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"quantforge/internal/calibration"
	"quantforge/internal/runner"
)

// generateImatrix computes the importance matrix the low-bit levels quantize
// with, running the full-precision model over the calibration dataset. The
// dataset is removed only after a successful run; a failure leaves it behind
// so the retry skips the download.
func (p *Pipeline) generateImatrix(ctx context.Context) error {
	cached, err := p.calib.Ensure(ctx, calibration.DefaultPath)
	if err != nil {
		return errors.Wrap(err, "preparing calibration dataset")
	}
	if cached {
		slog.Info("reusing cached calibration dataset", "path", calibration.DefaultPath)
	}

	slog.Info("generating importance matrix", "model", p.layout.Name)
	step := runner.Step{
		Prog: filepath.Join(p.opts.LlamaPath, "llama-imatrix"),
		Args: []string{
			"-m", p.layout.FullPrecisionPath(),
			"-f", calibration.DefaultPath,
			"-o", p.layout.ImatrixPath(),
			"-t", "7",
			"-ngl", "999",
			"--chunks", "2000",
		},
	}
	if err := p.runner.Run(ctx, step); err != nil {
		return errors.Wrap(err, "generating importance matrix")
	}

	if err := os.Remove(calibration.DefaultPath); err != nil {
		return errors.Wrap(err, "cleaning up calibration dataset")
	}
	return nil
}
