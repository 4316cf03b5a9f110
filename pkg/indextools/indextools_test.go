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

func newTestTools(t *testing.T) *IndexTools {
	client, err := elastic.NewSimpleClient()
	if err != nil {
		panic(err)
	}
	return New(client)
}

func TestIndexToolsExists(t *testing.T) {
	t.Run("true", func(t *testing.T) {
		ctx, _, teardown := testutil.ClientTestSetup(t)
		defer teardown()
		defer gock.CleanUnmatchedRequest()

		gock.New(elastic.DefaultURL).
			Head("/tweets").
			Reply(http.StatusOK)

		exists, err := newTestTools(t).Exists(ctx, "tweets")
		assert.NoError(t, err)
		assert.True(t, exists)
		assert.Condition(t, gock.IsDone)
	})

	t.Run("false", func(t *testing.T) {
		ctx, _, teardown := testutil.ClientTestSetup(t)
		defer teardown()
		defer gock.CleanUnmatchedRequest()

		gock.New(elastic.DefaultURL).
			Head("/tweets").
			Reply(http.StatusNotFound)

		exists, err := newTestTools(t).Exists(ctx, "tweets")
		assert.NoError(t, err)
		assert.False(t, exists)
		assert.Condition(t, gock.IsDone)
	})

	t.Run("no names", func(t *testing.T) {
		ctx, _, teardown := testutil.ClientTestSetup(t)
		defer teardown()

		_, err := newTestTools(t).Exists(ctx)
		assert.Error(t, err)
	})

	t.Run("empty name", func(t *testing.T) {
		ctx, _, teardown := testutil.ClientTestSetup(t)
		defer teardown()

		_, err := newTestTools(t).Exists(ctx, "")
		assert.Error(t, err)
	})
}

func TestIndexToolsGet(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ctx, _, teardown := testutil.ClientTestSetup(t)
		defer teardown()
		defer gock.CleanUnmatchedRequest()

		gock.New(elastic.DefaultURL).
			Get("/tweets").
			Reply(http.StatusOK).
			BodyString(testutil.LoadTestData("index_get.json"))

		info, err := newTestTools(t).Get(ctx, "tweets")
		assert.NoError(t, err)
		assert.NotNil(t, info)
		assert.Contains(t, info.Mappings, "properties")
		assert.Contains(t, info.Settings, "index")
		assert.Condition(t, gock.IsDone)
	})

	t.Run("not found", func(t *testing.T) {
		ctx, _, teardown := testutil.ClientTestSetup(t)
		defer teardown()
		defer gock.CleanUnmatchedRequest()

		gock.New(elastic.DefaultURL).
			Get("/tweets").
			Reply(http.StatusNotFound).
			BodyString(testutil.LoadTestData("index_not_found.json"))

		_, err := newTestTools(t).Get(ctx, "tweets")
		assert.Equal(t, ErrIndexNotFound, errors.Cause(err))
		assert.Condition(t, gock.IsDone)
	})
}

func TestIndexToolsGetMapping(t *testing.T) {
	ctx, _, teardown := testutil.ClientTestSetup(t)
	defer teardown()
	defer gock.CleanUnmatchedRequest()

	gock.New(elastic.DefaultURL).
		Get("/tweets/_mapping").
		Reply(http.StatusOK).
		BodyString(testutil.LoadTestData("mapping.json"))

	mapping, err := newTestTools(t).GetMapping(ctx, "tweets")
	assert.NoError(t, err)
	props, ok := mapping["properties"].(map[string]interface{})
	assert.True(t, ok)
	assert.Contains(t, props, "message")
	assert.Condition(t, gock.IsDone)
}

func TestIndexToolsGetSettings(t *testing.T) {
	ctx, _, teardown := testutil.ClientTestSetup(t)
	defer teardown()
	defer gock.CleanUnmatchedRequest()

	gock.New(elastic.DefaultURL).
		Get("/tweets/_settings").
		Reply(http.StatusOK).
		BodyString(testutil.LoadTestData("settings.json"))

	settings, err := newTestTools(t).GetSettings(ctx, "tweets")
	assert.NoError(t, err)
	assert.Contains(t, settings, "index")
	assert.Condition(t, gock.IsDone)
}

func TestIndexToolsStats(t *testing.T) {
	ctx, _, teardown := testutil.ClientTestSetup(t)
	defer teardown()
	defer gock.CleanUnmatchedRequest()

	gock.New(elastic.DefaultURL).
		Get("/tweets/_stats").
		Reply(http.StatusOK).
		BodyString(testutil.LoadTestData("stats.json"))

	stats, err := newTestTools(t).Stats(ctx, "tweets")
	assert.NoError(t, err)
	if assert.NotNil(t, stats) && assert.NotNil(t, stats.Total) && assert.NotNil(t, stats.Total.Docs) {
		assert.EqualValues(t, 128, stats.Total.Docs.Count)
	}
	assert.Condition(t, gock.IsDone)
}

func TestIndexToolsDelete(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ctx, _, teardown := testutil.ClientTestSetup(t)
		defer teardown()
		defer gock.CleanUnmatchedRequest()

		gock.New(elastic.DefaultURL).
			Delete("/tweets").
			Reply(http.StatusOK).
			BodyString(`{"acknowledged": true}`)

		err := newTestTools(t).Delete(ctx, "tweets")
		assert.NoError(t, err)
		assert.Condition(t, gock.IsDone)
	})

	t.Run("missing index is not an error", func(t *testing.T) {
		ctx, _, teardown := testutil.ClientTestSetup(t)
		defer teardown()
		defer gock.CleanUnmatchedRequest()

		gock.New(elastic.DefaultURL).
			Delete("/tweets").
			Reply(http.StatusNotFound).
			BodyString(testutil.LoadTestData("index_not_found.json"))

		err := newTestTools(t).Delete(ctx, "tweets")
		assert.NoError(t, err)
		assert.Condition(t, gock.IsDone)
	})
}
