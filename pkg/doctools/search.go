package doctools

import (
	"context"

	elastic "github.com/olivere/elastic/v7" // Elasticsearch client.
	"github.com/pkg/errors"                 // Error wrapping.
)

// Count returns the number of documents in an index matching a query
// body. The body is rendered with params when params are non-nil; an
// empty body counts every document.
func (d *DocTools) Count(ctx context.Context, index, body string, params map[string]interface{}) (int64, error) {
	if err := d.ensureIndex(ctx, index); err != nil {
		return 0, err
	}
	rendered, err := renderBody(body, params)
	if err != nil {
		return 0, err
	}
	svc := d.client.Count(index)
	if rendered != "" {
		svc = svc.BodyString(rendered)
	}
	n, err := svc.Do(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "error counting documents")
	}
	return n, nil
}

// Search runs a query body against an index. The body is rendered
// with params when params are non-nil; an empty body matches every
// document.
func (d *DocTools) Search(ctx context.Context, index, body string, params map[string]interface{}) (*elastic.SearchResult, error) {
	if err := d.ensureIndex(ctx, index); err != nil {
		return nil, err
	}
	rendered, err := renderBody(body, params)
	if err != nil {
		return nil, err
	}
	svc := d.client.Search(index)
	if rendered != "" {
		svc = svc.Source(rendered)
	}
	resp, err := svc.Do(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "error searching documents")
	}
	return resp, nil
}
