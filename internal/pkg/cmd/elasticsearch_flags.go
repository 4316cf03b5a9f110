package cmd

import (
	"context"
	"net/url"
	"time"

	elastic "github.com/olivere/elastic/v7"          // Elasticsearch client.
	"github.com/prometheus/client_golang/prometheus" // Prometheus metrics.

	"github.com/ncthuc/elastictools/pkg/esclient"
)

// ElasticsearchFlags represents a base set of flags for
// connecting to Elasticsearch.
type ElasticsearchFlags struct {
	// URL(s) of Elasticsearch nodes to connect to.
	URLs []*url.URL

	// Exponential backoff retries flags.
	Retry struct {
		// Initial backoff duration.
		Init time.Duration

		// Max backoff duration.
		Max time.Duration
	}
}

// NewElasticsearchFlags returns a new ElasticsearchFlags.
func NewElasticsearchFlags(app Flagger) *ElasticsearchFlags {
	var f ElasticsearchFlags

	app.Flag("elasticsearch.url", "URL(s) of Elasticsearch.").
		Short('e').
		Envar("ELASTICSEARCH_URL").
		Default(elastic.DefaultURL).
		URLListVar(&f.URLs)

	app.Flag("elasticsearch.retry.init", "Initial duration of Elasticsearch exponential backoff retries.").
		Hidden().
		Default(esclient.DefaultRetryInit.String()).
		DurationVar(&f.Retry.Init)

	app.Flag("elasticsearch.retry.max", "Max duration of Elasticsearch exponential backoff retries.").
		Hidden().
		Default(esclient.DefaultRetryMax.String()).
		DurationVar(&f.Retry.Max)

	return &f
}

// URLStrings returns the URL flag values as strings.
func (f *ElasticsearchFlags) URLStrings() []string {
	urls := make([]string, len(f.URLs))
	for i, u := range f.URLs {
		urls[i] = u.String()
	}
	return urls
}

// NewClient returns a new Elasticsearch client configured with the
// URL and retry flag values, plus any other options passed in.
func (f *ElasticsearchFlags) NewClient(ctx context.Context, options ...elastic.ClientOptionFunc) (*elastic.Client, error) {
	options = append(options, elastic.SetURL(f.URLStrings()...))
	return esclient.DialContextRetry(ctx, f.Retry.Init, f.Retry.Max, options...)
}

// NewInstrumentedClient is NewClient with the HTTP transport
// instrumented with Prometheus metrics.
func (f *ElasticsearchFlags) NewInstrumentedClient(ctx context.Context, reg prometheus.Registerer, options ...elastic.ClientOptionFunc) (*elastic.Client, error) {
	httpClient, err := esclient.InstrumentHTTP(nil, reg, Namespace, nil)
	if err != nil {
		return nil, err
	}
	options = append(options, elastic.SetHttpClient(httpClient))
	return f.NewClient(ctx, options...)
}
