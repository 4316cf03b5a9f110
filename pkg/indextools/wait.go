package indextools

import (
	"context"
	"time"

	"github.com/cenkalti/backoff" // Exponential backoff retries.
	"github.com/pkg/errors"       // Error wrapping.
)

// Cluster health statuses, ordered worst to best.
var statusRank = map[string]int{
	"red":    0,
	"yellow": 1,
	"green":  2,
}

// WaitForStatus polls cluster health with exponential backoff until
// the cluster reaches at least the given status ("red", "yellow" or
// "green"), or timeout elapses.
func (t *IndexTools) WaitForStatus(ctx context.Context, status string, timeout time.Duration) error {
	want, ok := statusRank[status]
	if !ok {
		return errors.Errorf("unknown cluster status %q", status)
	}
	op := func() error {
		resp, err := t.client.ClusterHealth().Do(ctx)
		if err != nil {
			return err
		}
		if statusRank[resp.Status] < want {
			return errors.Errorf("cluster status is %s, want at least %s", resp.Status, status)
		}
		return nil
	}
	return t.poll(ctx, op, timeout)
}

// WaitForIndex polls with exponential backoff until the named index
// exists, or timeout elapses.
func (t *IndexTools) WaitForIndex(ctx context.Context, name string, timeout time.Duration) error {
	if err := validateIndexName(name); err != nil {
		return err
	}
	op := func() error {
		exists, err := t.Exists(ctx, name)
		if err != nil {
			return err
		}
		if !exists {
			return errors.Wrap(ErrIndexNotFound, name)
		}
		return nil
	}
	return t.poll(ctx, op, timeout)
}

func (t *IndexTools) poll(ctx context.Context, op backoff.Operation, timeout time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxElapsedTime = timeout
	return backoff.Retry(op, backoff.WithContext(b, ctx))
}
