package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
)

// StepRunner runs a single external tool invocation to completion.
type StepRunner interface {
	Run(ctx context.Context, step Step) error
}

// Runner executes steps as child processes, racing each against cancellation
// of its context. External tools own the terminal for their own progress
// output, so stdout and stderr are inherited unless overridden for tests.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
}

var _ StepRunner = (*Runner)(nil)

func New() *Runner {
	return &Runner{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run spawns the step's program and waits for it to finish. If ctx is
// cancelled first, the child's entire process group is killed and reaped
// before Run returns ErrCancelled. A context that is already cancelled
// returns ErrCancelled without spawning anything. Steps are never retried.
func (r *Runner) Run(ctx context.Context, step Step) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", step.Prog, ErrCancelled)
	}

	cmd := exec.Command(step.Prog, step.Args...)
	cmd.Dir = step.Dir
	if len(step.Env) > 0 {
		cmd.Env = append(os.Environ(), step.Env...)
	}
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	setProcessGroup(cmd)

	slog.Debug("running step", "step", step.String(), "dir", step.Dir)

	if err := cmd.Start(); err != nil {
		return &SpawnError{Prog: step.Prog, Err: err}
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err == nil {
			return nil
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Prog: step.Prog, Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("waiting on %s: %w", step.Prog, err)
	case <-ctx.Done():
		killProcessGroup(cmd)
		<-done // reap, never leave a zombie behind
		return fmt.Errorf("%s: %w", step.Prog, ErrCancelled)
	}
}
