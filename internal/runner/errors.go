package runner

import (
	"context"
	"errors"
	"fmt"
)

// ErrCancelled is reported when a step was stopped by cancellation, either
// before it spawned or by killing an already-running child.
var ErrCancelled = errors.New("step cancelled")

// SpawnError reports that a child process could not be started at all, for
// example because the program is missing from PATH.
type SpawnError struct {
	Prog string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawning %s: %v", e.Prog, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ExitError reports that a child process ran to completion and exited with a
// non-zero status.
type ExitError struct {
	Prog string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Prog, e.Code)
}

// IsCancelled reports whether err resulted from cancellation, covering both
// killed child processes and in-process work aborted via context.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}
