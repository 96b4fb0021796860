package publish

import (
	"context"
	"time"
)

// Publisher syncs the current contents of a model's output directory to one
// remote target. Each call re-publishes the whole eligible set, so a single
// run also covers every artifact finished before it started. Publish is
// never invoked concurrently with itself; the Coordinator serializes runs.
type Publisher interface {
	// Name identifies the target in logs and the run ledger.
	Name() string

	Publish(ctx context.Context) error
}

// Recorder receives the outcome of every publication run.
type Recorder interface {
	RecordPublication(target string, start time.Time, err error)
}

// Recorded wraps target so each run's outcome is reported to rec before the
// error propagates.
func Recorded(target Publisher, rec Recorder) Publisher {
	return &recorded{target: target, rec: rec}
}

type recorded struct {
	target Publisher
	rec    Recorder
}

func (r *recorded) Name() string { return r.target.Name() }

func (r *recorded) Publish(ctx context.Context) error {
	start := time.Now().UTC()
	err := r.target.Publish(ctx)
	r.rec.RecordPublication(r.target.Name(), start, err)
	return err
}
