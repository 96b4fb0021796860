package publish

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Multi fans one publication run out to several targets concurrently. A
// failing target does not stop the others; every target gets its attempt
// and the first error is reported for the run.
func Multi(targets ...Publisher) Publisher {
	if len(targets) == 1 {
		return targets[0]
	}
	return multi(targets)
}

type multi []Publisher

func (m multi) Name() string {
	names := make([]string, len(m))
	for i, target := range m {
		names[i] = target.Name()
	}
	return strings.Join(names, "+")
}

func (m multi) Publish(ctx context.Context) error {
	var group errgroup.Group
	for _, target := range m {
		group.Go(func() error { return target.Publish(ctx) })
	}
	return group.Wait()
}
