package publish

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantforge/internal/gguf"
	"quantforge/internal/runner"
)

// recordingRunner captures every step instead of spawning processes.
type recordingRunner struct {
	mu    sync.Mutex
	steps []runner.Step
	err   error
}

func (r *recordingRunner) Run(ctx context.Context, step runner.Step) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, step)
	return r.err
}

func TestHub_UploadCommand(t *testing.T) {
	rec := &recordingRunner{}
	layout := gguf.NewLayout("mistralai/Mistral-7B-v0.1", gguf.F16, "", "")
	hub := NewHub(rec, layout, "someuser", "hf_secret")

	require.NoError(t, hub.Publish(context.Background()))

	require.Len(t, rec.steps, 1)
	step := rec.steps[0]
	assert.Equal(t, "huggingface-cli", step.Prog)
	assert.Equal(t, []string{
		"upload", "someuser/Mistral-7B-v0.1-GGUF", "Mistral-7B-v0.1", ".",
		"--include", "*.gguf", "*.imatrix",
	}, step.Args)
	assert.Contains(t, step.Env, "HF_USER=someuser")
	assert.Contains(t, step.Env, "HF_TOKEN=hf_secret")
}

func TestHub_PropagatesRunnerError(t *testing.T) {
	rec := &recordingRunner{err: &runner.ExitError{Prog: "huggingface-cli", Code: 1}}
	layout := gguf.NewLayout("org/Model", gguf.F16, "", "")
	hub := NewHub(rec, layout, "someuser", "tok")

	err := hub.Publish(context.Background())
	require.Error(t, err)

	var exitErr *runner.ExitError
	assert.ErrorAs(t, err, &exitErr, "exit details must survive wrapping")
}
