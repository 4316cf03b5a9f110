package doctools

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"                // Client-side document IDs.
	elastic "github.com/olivere/elastic/v7" // Elasticsearch client.
	"github.com/pkg/errors"                 // Error wrapping.
	"github.com/tidwall/gjson"              // Dynamic JSON parsing.
	"go.uber.org/zap"                       // Logging.
	tomb "gopkg.in/tomb.v2"                 // Goroutine lifecycle management.

	"github.com/ncthuc/elastictools/pkg/indextools"
)

// Bulk loader defaults.
const (
	DefaultBulkWorkers   = 2
	DefaultBulkBatchSize = 500

	// maxLineBytes is the largest NDJSON line the loader accepts.
	maxLineBytes = 16 * 1024 * 1024
)

// BulkLoader ingests newline-delimited JSON documents into an index
// concurrently: one reader goroutine feeds N indexing workers, each
// flushing batches via the bulk API. The goroutines run under a
// tomb so the first error cancels the rest.
type BulkLoader struct {
	client    *elastic.Client
	index     string
	workers   int
	batchSize int
	idField   string
	logger    *zap.Logger

	read    int64
	indexed int64
	failed  int64
}

// NewBulkLoader returns a BulkLoader for the named index with default
// worker count and batch size.
func NewBulkLoader(client *elastic.Client, index string) *BulkLoader {
	return &BulkLoader{
		client:    client,
		index:     index,
		workers:   DefaultBulkWorkers,
		batchSize: DefaultBulkBatchSize,
		logger:    zap.NewNop(),
	}
}

// Workers sets the number of concurrent indexing workers.
// Values < 1 are treated as 1.
func (l *BulkLoader) Workers(n int) *BulkLoader {
	if n < 1 {
		n = 1
	}
	l.workers = n
	return l
}

// BatchSize sets how many documents each worker batches into one bulk
// request. Values < 1 are treated as 1.
func (l *BulkLoader) BatchSize(n int) *BulkLoader {
	if n < 1 {
		n = 1
	}
	l.batchSize = n
	return l
}

// IDField sets a gjson path looked up in each document for its ID.
// Documents where the path is absent, and all documents when no path
// is set, get a client-side UUID.
func (l *BulkLoader) IDField(path string) *BulkLoader {
	l.idField = path
	return l
}

// Logger sets the logger. The default is a nop logger.
func (l *BulkLoader) Logger(logger *zap.Logger) *BulkLoader {
	l.logger = logger
	return l
}

// BulkStats is a snapshot of loader progress.
type BulkStats struct {
	Read    int64 // Documents read from the input.
	Indexed int64 // Documents successfully indexed.
	Failed  int64 // Documents rejected by Elasticsearch.
}

// Stats returns a snapshot of loader progress. Safe to call while
// Run is in flight.
func (l *BulkLoader) Stats() BulkStats {
	return BulkStats{
		Read:    atomic.LoadInt64(&l.read),
		Indexed: atomic.LoadInt64(&l.indexed),
		Failed:  atomic.LoadInt64(&l.failed),
	}
}

// Run reads newline-delimited JSON documents from r and indexes them
// until EOF or the first error. Blank lines are skipped; a line that
// isn't valid JSON aborts the load.
func (l *BulkLoader) Run(ctx context.Context, r io.Reader) error {
	exists, err := l.client.IndexExists(l.index).Do(ctx)
	if err != nil {
		return errors.Wrap(err, "error checking index existence")
	}
	if !exists {
		return errors.Wrap(indextools.ErrIndexNotFound, l.index)
	}

	tb, ctx := tomb.WithContext(ctx)
	lines := make(chan string, l.workers)

	tb.Go(func() error {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		lineno := 0
		for scanner.Scan() {
			lineno++
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if !gjson.Valid(line) {
				return errors.Errorf("invalid JSON on line %d", lineno)
			}
			atomic.AddInt64(&l.read, 1)
			select {
			case lines <- line:
			case <-tb.Dying():
				return nil
			}
		}
		return errors.Wrap(scanner.Err(), "error reading input")
	})

	for i := 0; i < l.workers; i++ {
		tb.Go(func() error {
			return l.worker(ctx, lines)
		})
	}

	err = tb.Wait()
	stats := l.Stats()
	l.logger.Info("bulk load finished",
		zap.String("index", l.index),
		zap.Int64("read", stats.Read),
		zap.Int64("indexed", stats.Indexed),
		zap.Int64("failed", stats.Failed),
		zap.Error(err),
	)
	return err
}

func (l *BulkLoader) worker(ctx context.Context, lines <-chan string) error {
	bulk := l.client.Bulk().Index(l.index)
	for line := range lines {
		id := ""
		if l.idField != "" {
			if v := gjson.Get(line, l.idField); v.Exists() {
				id = v.String()
			}
		}
		if id == "" {
			id = uuid.New().String()
		}
		bulk.Add(elastic.NewBulkIndexRequest().Id(id).Doc(json.RawMessage(line)))
		if bulk.NumberOfActions() >= l.batchSize {
			if err := l.flush(ctx, bulk); err != nil {
				return err
			}
		}
	}
	return l.flush(ctx, bulk)
}

// flush sends the accumulated actions as one bulk request.
// A successful Do() resets the service for reuse.
func (l *BulkLoader) flush(ctx context.Context, bulk *elastic.BulkService) error {
	n := bulk.NumberOfActions()
	if n == 0 {
		return nil
	}
	resp, err := bulk.Do(ctx)
	if err != nil {
		atomic.AddInt64(&l.failed, int64(n))
		return errors.Wrap(err, "bulk request failed")
	}
	failed := resp.Failed()
	atomic.AddInt64(&l.failed, int64(len(failed)))
	atomic.AddInt64(&l.indexed, int64(n-len(failed)))
	if len(failed) > 0 {
		ids := make([]string, len(failed))
		for i, item := range failed {
			ids[i] = item.Id
		}
		return errors.Errorf("%d bulk items failed: %s", len(failed), strings.Join(ids, ", "))
	}
	l.logger.Debug("flushed bulk batch",
		zap.String("index", l.index),
		zap.Int("actions", n),
	)
	return nil
}
