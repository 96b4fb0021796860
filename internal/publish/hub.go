package publish

import (
	"context"

	"github.com/pkg/errors"

	"quantforge/internal/gguf"
	"quantforge/internal/runner"
)

// includePatterns are the artifact extensions eligible for publication.
// In-progress quantizations never match: they only gain the .gguf suffix
// once their rename completes.
var includePatterns = []string{"*.gguf", "*.imatrix"}

// Hub publishes the model directory to the HuggingFace Hub by driving
// huggingface-cli, the same client the download stage uses. The target
// repository is <user>/<name>-GGUF.
type Hub struct {
	runner runner.StepRunner
	layout gguf.Layout
	user   string
	token  string
}

var _ Publisher = (*Hub)(nil)

func NewHub(r runner.StepRunner, layout gguf.Layout, user, token string) *Hub {
	return &Hub{runner: r, layout: layout, user: user, token: token}
}

func (h *Hub) Name() string { return "huggingface-hub" }

func (h *Hub) Publish(ctx context.Context) error {
	args := []string{"upload", h.layout.HubRepo(h.user), h.layout.Dir(), ".", "--include"}
	args = append(args, includePatterns...)

	step := runner.Step{
		Prog: "huggingface-cli",
		Args: args,
		Env:  []string{"HF_USER=" + h.user, "HF_TOKEN=" + h.token},
	}
	if err := h.runner.Run(ctx, step); err != nil {
		return errors.Wrap(err, "uploading to huggingface hub")
	}
	return nil
}
