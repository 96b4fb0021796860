// Package pipeline drives one model through the fixed conversion sequence:
// toolchain update, source download, full-precision conversion, importance
// matrix generation, quantization, publication. Stages run strictly in order
// and the first failure aborts the run; only publication overlaps, handled by
// a background coordinator fed from the quantization loop.
package pipeline

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/pkg/errors"

	"quantforge/internal/calibration"
	"quantforge/internal/gguf"
	"quantforge/internal/ledger"
	"quantforge/internal/publish"
	"quantforge/internal/runner"
)

// Options selects which stages run and how. The zero value runs every stage
// with default settings except the toolchain update, which is opt-in.
type Options struct {
	// Quants are the quantization levels to produce, in request order.
	Quants []gguf.Level

	// LlamaPath is the llama.cpp checkout holding the conversion script and
	// the llama-imatrix and llama-quantize binaries.
	LlamaPath string

	// UpdateLlama refreshes and rebuilds the llama.cpp checkout first,
	// cloning it if the path does not exist.
	UpdateLlama bool

	// SkipDownload assumes the model's source files are already on disk.
	SkipDownload bool

	// OnlyUpload skips every artifact-producing stage and publishes whatever
	// the output directory already holds.
	OnlyUpload bool

	// Verbose passes verbosity through to the external tools that accept it.
	Verbose bool
}

// Pipeline owns one run for one model. It is not reusable; build a new one
// per invocation.
type Pipeline struct {
	runner runner.StepRunner
	layout gguf.Layout
	opts   Options

	calib *calibration.Fetcher
	pub   *publish.Coordinator
	rec   *ledger.Ledger
}

// New assembles a pipeline. pub may be nil to skip publication entirely and
// rec may be nil to skip run history.
func New(r runner.StepRunner, layout gguf.Layout, opts Options, calib *calibration.Fetcher, pub *publish.Coordinator, rec *ledger.Ledger) *Pipeline {
	return &Pipeline{
		runner: r,
		layout: layout,
		opts:   opts,
		calib:  calib,
		pub:    pub,
		rec:    rec,
	}
}

// Run executes the pipeline and returns the run's final status: nil, the
// first stage failure, a cancellation, or the publication errors collected
// during the drain.
func (p *Pipeline) Run(ctx context.Context) error {
	// ledger writes get their own context so a cancelled run is still recorded
	p.rec.BeginRun(context.Background(), p.layout, p.opts.Quants)

	err := p.execute(ctx)

	p.rec.FinishRun(context.Background(), err)
	return err
}

func (p *Pipeline) execute(ctx context.Context) error {
	if p.opts.UpdateLlama {
		if err := p.updateToolchain(ctx); err != nil {
			return err
		}
	}

	if p.pub != nil {
		p.pub.Start(ctx)
	}

	if !p.opts.OnlyUpload {
		if err := p.produceArtifacts(ctx); err != nil {
			if p.pub != nil {
				p.abortPublication()
			}
			return err
		}
	}

	if p.pub == nil {
		return nil
	}
	return p.drainPublication(ctx)
}

// produceArtifacts runs the artifact-producing stages in order: download,
// conversion, importance matrix, quantization.
func (p *Pipeline) produceArtifacts(ctx context.Context) error {
	// the output directory normally appears during download; create it up
	// front so skipping that stage doesn't leave the later ones without a
	// place to write
	if err := os.MkdirAll(p.layout.Dir(), os.ModePerm); err != nil {
		return errors.Wrap(err, "creating model directory")
	}

	if p.skipDownload() {
		slog.Info("skipping download from huggingface hub", "model", p.layout.ModelID)
	} else if err := p.downloadModel(ctx); err != nil {
		return err
	}

	if p.layout.FullPrecisionOverridden() {
		slog.Info("skipping full-precision conversion", "fp", p.layout.FullPrecisionPath())
	} else if err := p.convertFullPrecision(ctx); err != nil {
		return err
	}

	if p.needsImatrix() {
		if err := p.generateImatrix(ctx); err != nil {
			return err
		}
	}

	return p.quantizeAll(ctx)
}

func (p *Pipeline) skipDownload() bool {
	return p.opts.SkipDownload || p.layout.FullPrecisionOverridden()
}

func (p *Pipeline) needsImatrix() bool {
	return gguf.RequiresImatrix(p.opts.Quants) && !p.layout.ImatrixOverridden()
}

// drainPublication finishes publication after a successful run: wait out any
// in-flight run, enqueue one final run covering every artifact produced, then
// shut the worker down and collect its errors. On cancellation the wait is
// abandoned; the final trigger is still enqueued but the worker discards it,
// so the post-drain check below keeps a cancelled run from reporting success.
func (p *Pipeline) drainPublication(ctx context.Context) error {
	slog.Info("waiting for publications to finish")

poll:
	for p.pub.Busy() {
		select {
		case <-ctx.Done():
			break poll
		case <-time.After(100 * time.Millisecond):
		}
	}

	p.pub.Trigger()
	p.pub.Close()
	err := p.pub.Wait()

	if ctx.Err() != nil && err == nil {
		err = runner.ErrCancelled
	}
	if err != nil {
		return errors.Wrap(err, "draining publications")
	}
	return nil
}

// abortPublication shuts the worker down after a stage failure. No final
// trigger is sent, but runs already queued for completed artifacts still go
// out; their errors are logged and the stage failure stays the run's error.
func (p *Pipeline) abortPublication() {
	p.pub.Close()
	if err := p.pub.Wait(); err != nil {
		slog.Error("publication failed while aborting", "error", err)
	}
}
