package publish

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPublisher struct {
	name  string
	err   error
	calls atomic.Int32
}

func (s *stubPublisher) Name() string { return s.name }

func (s *stubPublisher) Publish(ctx context.Context) error {
	s.calls.Add(1)
	return s.err
}

func TestMulti_PublishesEveryTarget(t *testing.T) {
	hubErr := errors.New("hub unreachable")
	hub := &stubPublisher{name: "huggingface-hub", err: hubErr}
	mirror := &stubPublisher{name: "s3-mirror"}

	err := Multi(hub, mirror).Publish(context.Background())

	require.ErrorIs(t, err, hubErr)
	assert.Equal(t, int32(1), hub.calls.Load())
	assert.Equal(t, int32(1), mirror.calls.Load(), "a failing target must not stop the others")
}

func TestMulti_SingleTargetIsUnwrapped(t *testing.T) {
	hub := &stubPublisher{name: "huggingface-hub"}
	assert.Same(t, Publisher(hub), Multi(hub))
}

func TestMulti_Name(t *testing.T) {
	m := Multi(&stubPublisher{name: "huggingface-hub"}, &stubPublisher{name: "s3-mirror"})
	assert.Equal(t, "huggingface-hub+s3-mirror", m.Name())
}

type memRecorder struct {
	targets []string
	errs    []error
	starts  []time.Time
}

func (m *memRecorder) RecordPublication(target string, start time.Time, err error) {
	m.targets = append(m.targets, target)
	m.errs = append(m.errs, err)
	m.starts = append(m.starts, start)
}

func TestRecorded_ReportsOutcome(t *testing.T) {
	rec := &memRecorder{}
	failure := errors.New("denied")

	ok := Recorded(&stubPublisher{name: "huggingface-hub"}, rec)
	bad := Recorded(&stubPublisher{name: "s3-mirror", err: failure}, rec)

	require.NoError(t, ok.Publish(context.Background()))
	require.ErrorIs(t, bad.Publish(context.Background()), failure)

	require.Equal(t, []string{"huggingface-hub", "s3-mirror"}, rec.targets)
	assert.NoError(t, rec.errs[0])
	assert.ErrorIs(t, rec.errs[1], failure)
	assert.False(t, rec.starts[0].IsZero())
}
