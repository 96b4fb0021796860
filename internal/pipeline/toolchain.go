package pipeline

import (
	"context"
	"log/slog"
	"os"

	"github.com/pkg/errors"

	"quantforge/internal/runner"
)

// llamaCppRepo is cloned when no checkout exists at the configured path.
const llamaCppRepo = "https://github.com/ggerganov/llama.cpp"

// updateToolchain brings the llama.cpp checkout up to date and rebuilds it:
// clone if missing, pull, clean, build, then install the conversion script's
// python dependencies.
func (p *Pipeline) updateToolchain(ctx context.Context) error {
	llama := p.opts.LlamaPath

	if _, err := os.Stat(llama); os.IsNotExist(err) {
		slog.Info("llama.cpp not found, installing", "path", llama)
		clone := runner.Step{Prog: "git", Args: []string{"clone", llamaCppRepo, llama}}
		if err := p.runner.Run(ctx, clone); err != nil {
			return errors.Wrap(err, "installing llama.cpp")
		}
	}

	slog.Info("updating and rebuilding llama.cpp", "path", llama)

	pipVerbosity := "-q"
	if p.opts.Verbose {
		pipVerbosity = "-v"
	}

	steps := []runner.Step{
		{Prog: "git", Args: []string{"pull"}, Dir: llama},
		{Prog: "make", Args: []string{"clean"}, Dir: llama},
		{Prog: "make", Dir: llama},
		{Prog: "pip3", Args: []string{"install", "-r", "requirements.txt", pipVerbosity}, Dir: llama},
	}
	for _, step := range steps {
		if err := p.runner.Run(ctx, step); err != nil {
			return errors.Wrap(err, "updating llama.cpp")
		}
	}
	return nil
}
