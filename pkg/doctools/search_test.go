package doctools

import (
	"net/http"
	"testing"

	elastic "github.com/olivere/elastic/v7" // Elasticsearch client.
	"github.com/stretchr/testify/assert"    // Test assertions e.g. equality.
	gock "gopkg.in/h2non/gock.v1"           // HTTP request mocking.

	"github.com/ncthuc/elastictools/internal/pkg/testutil" // Testing utilities.
)

func TestDocToolsCount(t *testing.T) {
	t.Run("all documents", func(t *testing.T) {
		ctx, _, teardown := testutil.ClientTestSetup(t)
		defer teardown()
		defer gock.CleanUnmatchedRequest()

		mockIndexExists(http.StatusOK)
		gock.New(elastic.DefaultURL).
			Post("/tweets/_count").
			Reply(http.StatusOK).
			BodyString(`{"count": 42, "_shards": {"total": 1, "successful": 1, "skipped": 0, "failed": 0}}`)

		n, err := newTestTools(t).Count(ctx, "tweets", "", nil)
		assert.NoError(t, err)
		assert.EqualValues(t, 42, n)
		assert.Condition(t, gock.IsDone)
	})

	t.Run("rendered body", func(t *testing.T) {
		ctx, _, teardown := testutil.ClientTestSetup(t)
		defer teardown()
		defer gock.CleanUnmatchedRequest()

		mockIndexExists(http.StatusOK)
		gock.New(elastic.DefaultURL).
			Post("/tweets/_count").
			BodyString(`{"query": {"term": {"user": "olivere"}}}`).
			Reply(http.StatusOK).
			BodyString(`{"count": 7, "_shards": {"total": 1, "successful": 1, "skipped": 0, "failed": 0}}`)

		n, err := newTestTools(t).Count(ctx, "tweets",
			`{"query": {"term": {"user": "{{.user}}"}}}`,
			map[string]interface{}{"user": "olivere"},
		)
		assert.NoError(t, err)
		assert.EqualValues(t, 7, n)
		assert.Condition(t, gock.IsDone)
	})

	t.Run("missing param", func(t *testing.T) {
		ctx, _, teardown := testutil.ClientTestSetup(t)
		defer teardown()
		defer gock.CleanUnmatchedRequest()

		mockIndexExists(http.StatusOK)

		_, err := newTestTools(t).Count(ctx, "tweets",
			`{"query": {"term": {"user": "{{.user}}"}}}`,
			map[string]interface{}{},
		)
		assert.Error(t, err)
		assert.Condition(t, gock.IsDone)
	})
}

func TestDocToolsSearch(t *testing.T) {
	ctx, _, teardown := testutil.ClientTestSetup(t)
	defer teardown()
	defer gock.CleanUnmatchedRequest()

	mockIndexExists(http.StatusOK)
	gock.New(elastic.DefaultURL).
		Post("/tweets/_search").
		Reply(http.StatusOK).
		BodyString(testutil.LoadTestData("search.json"))

	resp, err := newTestTools(t).Search(ctx, "tweets",
		`{"query": {"match_all": {}}}`,
		nil,
	)
	assert.NoError(t, err)
	assert.EqualValues(t, 2, resp.TotalHits())
	assert.Len(t, resp.Hits.Hits, 2)
	assert.Condition(t, gock.IsDone)
}
