// Package indextools provides convenience operations for managing
// Elasticsearch indices: existence checks, metadata inspection,
// cloning of mappings and settings, creation, deletion, and
// wait-until helpers.
package indextools

import (
	"context"

	elastic "github.com/olivere/elastic/v7" // Elasticsearch client.
	"github.com/pkg/errors"                 // Error wrapping.
	"go.uber.org/zap"                       // Logging.

	"github.com/ncthuc/elastictools/pkg/esclient"
)

// Sentinel errors returned by IndexTools and DocTools operations.
// Use errors.Cause() to test for them.
var (
	// ErrIndexNotFound is returned when an operation targets an index
	// that doesn't exist.
	ErrIndexNotFound = errors.New("elastictools: index not found")

	// ErrIndexExists is returned by CreateService.Do() when the index
	// already exists and Overwrite wasn't set.
	ErrIndexExists = errors.New("elastictools: index already exists")
)

// IndexTools wraps an Elasticsearch client with index-oriented
// convenience operations.
type IndexTools struct {
	client *elastic.Client
	logger *zap.Logger
}

// Option configures an IndexTools.
type Option func(*IndexTools)

// WithLogger sets the logger. The default is a nop logger.
func WithLogger(logger *zap.Logger) Option {
	return func(t *IndexTools) {
		t.logger = logger
	}
}

// New returns an IndexTools wrapping an existing client.
func New(client *elastic.Client, options ...Option) *IndexTools {
	t := &IndexTools{
		client: client,
		logger: zap.NewNop(),
	}
	for _, o := range options {
		o(t)
	}
	return t
}

// NewFromURL returns an IndexTools connected to the given URL(s),
// retrying the initial connection with the default backoff.
func NewFromURL(ctx context.Context, urls ...string) (*IndexTools, error) {
	client, err := esclient.DialURL(ctx, urls...)
	if err != nil {
		return nil, errors.Wrap(err, "error dialing Elasticsearch")
	}
	return New(client), nil
}

// Client returns the underlying Elasticsearch client.
func (t *IndexTools) Client() *elastic.Client {
	return t.client
}

// Exists returns true if every one of the named indices exists.
func (t *IndexTools) Exists(ctx context.Context, names ...string) (bool, error) {
	if err := validateIndexNames(names); err != nil {
		return false, err
	}
	ok, err := t.client.IndexExists(names...).Do(ctx)
	if err != nil {
		return false, errors.Wrap(err, "error checking index existence")
	}
	return ok, nil
}

// IndexInfo holds the aliases, mappings, and settings of an index.
type IndexInfo struct {
	Aliases  map[string]interface{}
	Mappings map[string]interface{}
	Settings map[string]interface{}
}

// Get returns the aliases, mappings, and settings of an index.
// Returns ErrIndexNotFound if the index doesn't exist.
func (t *IndexTools) Get(ctx context.Context, name string) (*IndexInfo, error) {
	if err := validateIndexName(name); err != nil {
		return nil, err
	}
	resp, err := t.client.IndexGet(name).Do(ctx)
	if err != nil {
		if elastic.IsNotFound(err) {
			return nil, errors.Wrap(ErrIndexNotFound, name)
		}
		return nil, errors.Wrap(err, "error getting index")
	}
	info, ok := resp[name]
	if !ok {
		return nil, errors.Wrap(ErrIndexNotFound, name)
	}
	return &IndexInfo{
		Aliases:  info.Aliases,
		Mappings: info.Mappings,
		Settings: info.Settings,
	}, nil
}

// GetMapping returns the mapping body of an index.
// Returns ErrIndexNotFound if the index doesn't exist.
func (t *IndexTools) GetMapping(ctx context.Context, name string) (map[string]interface{}, error) {
	if err := validateIndexName(name); err != nil {
		return nil, err
	}
	resp, err := t.client.GetMapping().Index(name).Do(ctx)
	if err != nil {
		if elastic.IsNotFound(err) {
			return nil, errors.Wrap(ErrIndexNotFound, name)
		}
		return nil, errors.Wrap(err, "error getting index mapping")
	}
	body, ok := resp[name].(map[string]interface{})
	if !ok {
		return nil, errors.Wrap(ErrIndexNotFound, name)
	}
	mappings, _ := body["mappings"].(map[string]interface{})
	return mappings, nil
}

// GetSettings returns the settings body of an index.
// Returns ErrIndexNotFound if the index doesn't exist.
func (t *IndexTools) GetSettings(ctx context.Context, name string) (map[string]interface{}, error) {
	if err := validateIndexName(name); err != nil {
		return nil, err
	}
	resp, err := t.client.IndexGetSettings(name).Do(ctx)
	if err != nil {
		if elastic.IsNotFound(err) {
			return nil, errors.Wrap(ErrIndexNotFound, name)
		}
		return nil, errors.Wrap(err, "error getting index settings")
	}
	info, ok := resp[name]
	if !ok {
		return nil, errors.Wrap(ErrIndexNotFound, name)
	}
	return info.Settings, nil
}

// Stats returns the stats of a single index.
// Returns ErrIndexNotFound if the index doesn't exist.
func (t *IndexTools) Stats(ctx context.Context, name string) (*elastic.IndexStats, error) {
	if err := validateIndexName(name); err != nil {
		return nil, err
	}
	resp, err := t.client.IndexStats(name).Do(ctx)
	if err != nil {
		if elastic.IsNotFound(err) {
			return nil, errors.Wrap(ErrIndexNotFound, name)
		}
		return nil, errors.Wrap(err, "error getting index stats")
	}
	stats, ok := resp.Indices[name]
	if !ok {
		return nil, errors.Wrap(ErrIndexNotFound, name)
	}
	return stats, nil
}

// Delete deletes an index. Deleting an index that doesn't exist is
// not an error.
func (t *IndexTools) Delete(ctx context.Context, name string) error {
	if err := validateIndexName(name); err != nil {
		return err
	}
	_, err := t.client.DeleteIndex(name).Do(ctx)
	if err != nil && !elastic.IsNotFound(err) {
		return errors.Wrap(err, "error deleting index")
	}
	t.logger.Debug("deleted index", zap.String("index", name))
	return nil
}

func validateIndexName(name string) error {
	if name == "" {
		return errors.New("index name must not be empty")
	}
	return nil
}

func validateIndexNames(names []string) error {
	if len(names) == 0 {
		return errors.New("at least one index name is required")
	}
	for _, n := range names {
		if err := validateIndexName(n); err != nil {
			return err
		}
	}
	return nil
}
