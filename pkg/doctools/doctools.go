// Package doctools provides convenience operations for manipulating
// Elasticsearch documents: indexing, retrieval, deletion, partial
// updates, counting and searching with template-rendered query
// bodies, and concurrent bulk loading.
package doctools

import (
	"context"
	"encoding/json"
	"time"

	elastic "github.com/olivere/elastic/v7" // Elasticsearch client.
	cache "github.com/patrickmn/go-cache"   // TTL cache.
	"github.com/pkg/errors"                 // Error wrapping.
	"go.uber.org/zap"                       // Logging.

	"github.com/ncthuc/elastictools/pkg/esclient"
	"github.com/ncthuc/elastictools/pkg/indextools"
)

// DefaultExistsCacheTTL is how long a positive index-existence check
// is remembered unless overridden by WithExistsCacheTTL.
const DefaultExistsCacheTTL = 5 * time.Second

// ErrDocumentNotFound is returned by Get, Source, Delete, and Update
// when the target document doesn't exist.
// Use errors.Cause() to test for it.
var ErrDocumentNotFound = errors.New("elastictools: document not found")

// DocTools wraps an Elasticsearch client with document-oriented
// convenience operations.
//
// Every operation first verifies that the target index exists and
// returns indextools.ErrIndexNotFound if it doesn't. Positive checks
// are memoized for the configured TTL to avoid an extra round trip
// per call.
type DocTools struct {
	client    *elastic.Client
	logger    *zap.Logger
	indexTool *indextools.IndexTools
	existsTTL time.Duration
	exists    *cache.Cache
}

// Option configures a DocTools.
type Option func(*DocTools)

// WithLogger sets the logger. The default is a nop logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *DocTools) {
		d.logger = logger
	}
}

// WithExistsCacheTTL sets how long positive index-existence checks
// are cached. A TTL <= 0 disables caching so every operation
// re-checks the index.
func WithExistsCacheTTL(ttl time.Duration) Option {
	return func(d *DocTools) {
		d.existsTTL = ttl
	}
}

// New returns a DocTools wrapping an existing client.
func New(client *elastic.Client, options ...Option) *DocTools {
	d := &DocTools{
		client:    client,
		logger:    zap.NewNop(),
		existsTTL: DefaultExistsCacheTTL,
	}
	for _, o := range options {
		o(d)
	}
	d.indexTool = indextools.New(client, indextools.WithLogger(d.logger))
	if d.existsTTL > 0 {
		d.exists = cache.New(d.existsTTL, 2*d.existsTTL)
	}
	return d
}

// NewFromURL returns a DocTools connected to the given URL(s),
// retrying the initial connection with the default backoff.
func NewFromURL(ctx context.Context, urls ...string) (*DocTools, error) {
	client, err := esclient.DialURL(ctx, urls...)
	if err != nil {
		return nil, errors.Wrap(err, "error dialing Elasticsearch")
	}
	return New(client), nil
}

// Client returns the underlying Elasticsearch client.
func (d *DocTools) Client() *elastic.Client {
	return d.client
}

// IndexTools returns an IndexTools sharing this DocTools' client.
func (d *DocTools) IndexTools() *indextools.IndexTools {
	return d.indexTool
}

// ensureIndex verifies the target index exists, memoizing positive
// results for the configured TTL.
func (d *DocTools) ensureIndex(ctx context.Context, index string) error {
	if index == "" {
		return errors.New("index name must not be empty")
	}
	if d.exists != nil {
		if _, ok := d.exists.Get(index); ok {
			return nil
		}
	}
	exists, err := d.indexTool.Exists(ctx, index)
	if err != nil {
		return err
	}
	if !exists {
		return errors.Wrap(indextools.ErrIndexNotFound, index)
	}
	if d.exists != nil {
		d.exists.SetDefault(index, true)
	}
	return nil
}

// Index creates or replaces a document. An empty id lets
// Elasticsearch assign one. Body may be a string, []byte,
// json.RawMessage, or any JSON-serializable value.
func (d *DocTools) Index(ctx context.Context, index, id string, body interface{}) (*elastic.IndexResponse, error) {
	if err := d.ensureIndex(ctx, index); err != nil {
		return nil, err
	}
	svc := d.client.Index().Index(index)
	if id != "" {
		svc = svc.Id(id)
	}
	svc = withBody(svc, body)
	resp, err := svc.Do(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "error indexing document")
	}
	d.logger.Debug("indexed document",
		zap.String("index", index),
		zap.String("id", resp.Id),
	)
	return resp, nil
}

// Get returns the full document envelope (index, id, version, source).
// Returns ErrDocumentNotFound if the document doesn't exist.
func (d *DocTools) Get(ctx context.Context, index, id string) (*elastic.GetResult, error) {
	if err := d.ensureIndex(ctx, index); err != nil {
		return nil, err
	}
	resp, err := d.client.Get().Index(index).Id(id).Do(ctx)
	if err != nil {
		if elastic.IsNotFound(err) {
			return nil, errors.Wrapf(ErrDocumentNotFound, "%s/%s", index, id)
		}
		return nil, errors.Wrap(err, "error getting document")
	}
	return resp, nil
}

// Source returns just the _source of a document.
// Returns ErrDocumentNotFound if the document doesn't exist.
func (d *DocTools) Source(ctx context.Context, index, id string) (json.RawMessage, error) {
	resp, err := d.Get(ctx, index, id)
	if err != nil {
		return nil, err
	}
	return resp.Source, nil
}

// Exists reports whether a document exists.
func (d *DocTools) Exists(ctx context.Context, index, id string) (bool, error) {
	if err := d.ensureIndex(ctx, index); err != nil {
		return false, err
	}
	exists, err := d.client.Exists().Index(index).Id(id).Do(ctx)
	if err != nil {
		return false, errors.Wrap(err, "error checking document existence")
	}
	return exists, nil
}

// Delete deletes a document.
// Returns ErrDocumentNotFound if the document doesn't exist.
func (d *DocTools) Delete(ctx context.Context, index, id string) (*elastic.DeleteResponse, error) {
	if err := d.ensureIndex(ctx, index); err != nil {
		return nil, err
	}
	resp, err := d.client.Delete().Index(index).Id(id).Do(ctx)
	if err != nil {
		if elastic.IsNotFound(err) {
			return nil, errors.Wrapf(ErrDocumentNotFound, "%s/%s", index, id)
		}
		return nil, errors.Wrap(err, "error deleting document")
	}
	d.logger.Debug("deleted document",
		zap.String("index", index),
		zap.String("id", id),
	)
	return resp, nil
}

// Update merges a partial document into an existing one.
// Returns ErrDocumentNotFound if the document doesn't exist.
func (d *DocTools) Update(ctx context.Context, index, id string, doc interface{}) (*elastic.UpdateResponse, error) {
	if err := d.ensureIndex(ctx, index); err != nil {
		return nil, err
	}
	resp, err := d.client.Update().Index(index).Id(id).Doc(doc).Do(ctx)
	if err != nil {
		if elastic.IsNotFound(err) {
			return nil, errors.Wrapf(ErrDocumentNotFound, "%s/%s", index, id)
		}
		return nil, errors.Wrap(err, "error updating document")
	}
	return resp, nil
}

// withBody applies a body of flexible type to an IndexService.
func withBody(svc *elastic.IndexService, body interface{}) *elastic.IndexService {
	switch b := body.(type) {
	case string:
		return svc.BodyString(b)
	case []byte:
		return svc.BodyString(string(b))
	case json.RawMessage:
		return svc.BodyString(string(b))
	default:
		return svc.BodyJson(body)
	}
}
