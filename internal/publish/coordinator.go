package publish

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
)

// Coordinator publishes artifacts in the background while the pipeline keeps
// quantizing. Triggers arrive on a buffered channel and a single worker
// serves them, so at most one publication runs at any time. Before starting
// a run the worker folds every already-buffered trigger into it: each run
// re-syncs the whole output directory, so one run covers the state of all
// the triggers it absorbed. The number of runs may therefore be smaller than
// the number of triggers, but every trigger is covered by a run that started
// no earlier than its enqueue.
type Coordinator struct {
	publisher Publisher

	triggers chan struct{}
	busy     atomic.Bool
	done     chan struct{}

	errs []error // owned by the worker until done is closed
}

// NewCoordinator sizes the trigger queue with capacity. The producer must
// bound its unconditional triggers by that capacity so enqueueing never
// blocks; one slot per quantization job plus the final drain trigger.
func NewCoordinator(publisher Publisher, capacity int) *Coordinator {
	return &Coordinator{
		publisher: publisher,
		triggers:  make(chan struct{}, capacity),
		done:      make(chan struct{}),
	}
}

// Start launches the worker. ctx gates only the start of new runs: once it
// is cancelled, remaining triggers are discarded, but an in-flight
// publication is never interrupted.
func (c *Coordinator) Start(ctx context.Context) {
	go c.work(ctx)
}

func (c *Coordinator) work(ctx context.Context) {
	defer close(c.done)

	for range c.triggers {
		c.absorbPending()

		if ctx.Err() != nil {
			// no new work after cancellation; keep consuming so Close
			// and Wait never strand the producer
			continue
		}

		c.busy.Store(true)
		slog.Info("publishing artifacts", "target", c.publisher.Name())
		// deliberately not ctx: an in-flight publication always finishes
		if err := c.publisher.Publish(context.Background()); err != nil {
			slog.Error("publication failed", "target", c.publisher.Name(), "error", err)
			c.errs = append(c.errs, err)
		}
		c.busy.Store(false)
	}
}

// absorbPending drains triggers that queued up behind the one being served;
// the run about to start covers the state that produced them.
func (c *Coordinator) absorbPending() {
	for {
		select {
		case _, ok := <-c.triggers:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// Busy reports whether a publication run is in flight. Producers read it to
// skip pointless triggers and the pipeline polls it during shutdown; the
// queue, not this flag, is what guarantees no trigger is lost.
func (c *Coordinator) Busy() bool { return c.busy.Load() }

// TriggerIfIdle enqueues a trigger unless a run is already in flight, in
// which case the pipeline's final drain trigger covers the new state anyway.
func (c *Coordinator) TriggerIfIdle() {
	if !c.busy.Load() {
		c.Trigger()
	}
}

// Trigger enqueues a publication trigger unconditionally.
func (c *Coordinator) Trigger() {
	c.triggers <- struct{}{}
}

// Close signals that no more triggers will arrive. The worker still serves
// everything already enqueued before exiting.
func (c *Coordinator) Close() {
	close(c.triggers)
}

// Wait blocks until the worker has exited and returns the publication errors
// it collected. Failed publications never invalidate artifacts already on
// disk, but they do make the run report failure. Call after Close.
func (c *Coordinator) Wait() error {
	<-c.done
	return errors.Join(c.errs...)
}
