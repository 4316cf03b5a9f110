// Package esclient constructs Elasticsearch clients with connection
// retry and optional Prometheus instrumentation of the HTTP transport.
package esclient

import (
	"context"
	"time"

	elastic "github.com/olivere/elastic/v7" // Elasticsearch client.
)

// Default retry backoff bounds used by the convenience constructors.
const (
	DefaultRetryInit = 150 * time.Millisecond
	DefaultRetryMax  = 1200 * time.Millisecond
)

// DialContextRetry returns a new Elasticsearch client that retries
// failed requests with exponential backoff. Unlike plain
// elastic.DialContext() it also applies the backoff to the initial
// connection, so callers can start before the cluster is up.
//
// If max <= 0 the client is returned without any retry behavior.
// Only connection errors are retried.
func DialContextRetry(ctx context.Context, init, max time.Duration, options ...elastic.ClientOptionFunc) (*elastic.Client, error) {
	if max <= 0 {
		return elastic.DialContext(ctx, options...)
	}
	retrier := elastic.NewBackoffRetrier(elastic.NewExponentialBackoff(init, max))
	options = append(options, elastic.SetRetrier(retrier))
	for attempt := 0; ; attempt++ {
		client, err := elastic.DialContext(ctx, options...)
		if err == nil {
			return client, nil
		}
		if !elastic.IsConnErr(err) {
			return nil, err
		}
		wait, ok, _ := retrier.Retry(ctx, attempt, nil, nil, err)
		if !ok {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// DialRetry is DialContextRetry with a background context.
func DialRetry(init, max time.Duration, options ...elastic.ClientOptionFunc) (*elastic.Client, error) {
	return DialContextRetry(context.Background(), init, max, options...)
}

// DialURL returns a client for the given URL(s) using the default
// retry bounds.
func DialURL(ctx context.Context, urls ...string) (*elastic.Client, error) {
	return DialContextRetry(ctx, DefaultRetryInit, DefaultRetryMax, elastic.SetURL(urls...))
}
