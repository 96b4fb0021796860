package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"quantforge/internal/gguf"
	"quantforge/internal/runner"
)

// quantizeAll produces one artifact per requested level, strictly in request
// order; each artifact is fully in place under its final name before the next
// level starts. Every completed artifact nudges the publication worker unless
// a run is already in flight, in which case the final drain run covers it.
func (p *Pipeline) quantizeAll(ctx context.Context) error {
	for _, level := range p.opts.Quants {
		if err := p.quantizeOne(ctx, level); err != nil {
			return err
		}
		if p.pub != nil {
			p.pub.TriggerIfIdle()
		}
	}
	return nil
}

func (p *Pipeline) quantizeOne(ctx context.Context, level gguf.Level) error {
	slog.Info("quantizing", "model", p.layout.Name, "level", level.Tag())
	p.rec.BeginArtifact(context.Background(), level, p.layout.QuantPath(level))

	err := p.runQuantizer(ctx, level)

	p.rec.FinishArtifact(context.Background(), level, p.layout.QuantPath(level), err)
	return err
}

func (p *Pipeline) runQuantizer(ctx context.Context, level gguf.Level) error {
	pending := p.layout.PendingPath(level)

	var args []string
	if level.RequiresImatrix() {
		args = append(args, "--imatrix", p.layout.ImatrixPath())
	}
	args = append(args, p.layout.FullPrecisionPath(), pending, level.String())

	step := runner.Step{Prog: filepath.Join(p.opts.LlamaPath, "llama-quantize"), Args: args}
	if err := p.runner.Run(ctx, step); err != nil {
		return errors.Wrapf(err, "quantizing to %s", level.Tag())
	}

	// a publication run may scan the directory at any moment, so the artifact
	// appears under its final name only once it is complete
	if err := os.Rename(pending, p.layout.QuantPath(level)); err != nil {
		return errors.Wrapf(err, "moving %s artifact into place", level.Tag())
	}
	return nil
}
