package indextools

import (
	"net/http"
	"testing"

	elastic "github.com/olivere/elastic/v7" // Elasticsearch client.
	"github.com/pkg/errors"                 // Error wrapping.
	"github.com/stretchr/testify/assert"    // Test assertions e.g. equality.
	gock "gopkg.in/h2non/gock.v1"           // HTTP request mocking.

	"github.com/ncthuc/elastictools/internal/pkg/testutil" // Testing utilities.
)

const createdBody = `{"acknowledged": true, "shards_acknowledged": true, "index": "tweets"}`

func TestCreateService(t *testing.T) {
	t.Run("new index", func(t *testing.T) {
		ctx, _, teardown := testutil.ClientTestSetup(t)
		defer teardown()
		defer gock.CleanUnmatchedRequest()

		gock.New(elastic.DefaultURL).
			Head("/tweets").
			Reply(http.StatusNotFound)
		gock.New(elastic.DefaultURL).
			Put("/tweets").
			Reply(http.StatusOK).
			BodyString(createdBody)

		resp, err := newTestTools(t).Create("tweets").
			Mapping(`{"properties": {"message": {"type": "text"}}}`).
			Settings(`{"index": {"number_of_shards": "1"}}`).
			Do(ctx)
		assert.NoError(t, err)
		assert.True(t, resp.Acknowledged)
		assert.Equal(t, "tweets", resp.Index)
		assert.Condition(t, gock.IsDone)
	})

	t.Run("existing index without overwrite", func(t *testing.T) {
		ctx, _, teardown := testutil.ClientTestSetup(t)
		defer teardown()
		defer gock.CleanUnmatchedRequest()

		gock.New(elastic.DefaultURL).
			Head("/tweets").
			Reply(http.StatusOK)

		_, err := newTestTools(t).Create("tweets").Do(ctx)
		assert.Equal(t, ErrIndexExists, errors.Cause(err))
		assert.Condition(t, gock.IsDone)
	})

	t.Run("existing index with overwrite", func(t *testing.T) {
		ctx, _, teardown := testutil.ClientTestSetup(t)
		defer teardown()
		defer gock.CleanUnmatchedRequest()

		gock.New(elastic.DefaultURL).
			Head("/tweets").
			Reply(http.StatusOK)
		gock.New(elastic.DefaultURL).
			Delete("/tweets").
			Reply(http.StatusOK).
			BodyString(`{"acknowledged": true}`)
		gock.New(elastic.DefaultURL).
			Put("/tweets").
			Reply(http.StatusOK).
			BodyString(createdBody)

		resp, err := newTestTools(t).Create("tweets").
			BodyString(`{"settings": {"index": {"number_of_shards": "1"}}}`).
			Overwrite(true).
			Do(ctx)
		assert.NoError(t, err)
		assert.True(t, resp.Acknowledged)
		assert.Condition(t, gock.IsDone)
	})

	t.Run("validate", func(t *testing.T) {
		ctx, _, teardown := testutil.ClientTestSetup(t)
		defer teardown()

		_, err := newTestTools(t).Create("").Do(ctx)
		assert.Error(t, err)

		_, err = newTestTools(t).Create("tweets").
			BodyString(`{}`).
			Mapping(`{}`).
			Do(ctx)
		assert.Error(t, err)
	})
}
