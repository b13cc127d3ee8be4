package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"media-reconciler/core/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(apiURL string) Config {
	return Config{
		APIURL:         apiURL,
		PageAPIURL:     apiURL,
		UserAgent:      "media-reconciler-test/1.0",
		UsageLimit:     500,
		ThumbWidth:     300,
		TimeoutSeconds: 5,
	}
}

func TestAPIFetcher_SearchParams(t *testing.T) {
	f := NewAPIFetcher(testConfig("http://unused"), http.DefaultClient)

	fresh := f.SearchParams(reconcile.Request{EntityID: "Q84", Language: "de", Size: 7, Offset: 0})
	assert.Equal(t, "filetype:bitmap|drawing custommatch:linked_from=Q84 -fileres:0", fresh.Get("gsrsearch"))
	assert.Equal(t, "6", fresh.Get("gsrnamespace"))
	assert.Equal(t, "7", fresh.Get("gsrlimit"))
	assert.Equal(t, "0", fresh.Get("gsroffset"))
	assert.Equal(t, "popular_inclinks", fresh.Get("gsrqiprofile"))
	assert.Equal(t, "entityterms|globalusage|imageinfo", fresh.Get("prop"))
	assert.Equal(t, "de", fresh.Get("wbetlanguage"))
	assert.Equal(t, "500", fresh.Get("gulimit"))
	assert.Equal(t, "300", fresh.Get("iiurlwidth"))
	assert.Equal(t, "1", fresh.Get("gufilterlocal"))
	assert.True(t, fresh.Has("continue"))
	assert.Empty(t, fresh.Get("continue"))
	assert.False(t, fresh.Has("gucontinue"))
	assert.False(t, fresh.Has("iicontinue"))

	cont := f.SearchParams(reconcile.Request{
		EntityID: "Q84",
		Size:     3,
		Offset:   2,
		Cursors: reconcile.CursorPair{
			Usage:    reconcile.Continuing("A.jpg|fr.wikipedia.org|999999999999999"),
			Metadata: reconcile.Exhausted(),
		},
	})
	assert.Equal(t, "A.jpg|fr.wikipedia.org|999999999999999", cont.Get("gucontinue"))
	assert.False(t, cont.Has("iicontinue"))
	assert.Equal(t, "||entityterms|imageinfo", cont.Get("continue"))
	assert.Equal(t, "2", cont.Get("gsroffset"))
}

func TestAPIFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "media-reconciler-test/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "search", r.URL.Query().Get("generator"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"batchcomplete": true, "query": {"pages": [
			{"title": "File:A.jpg", "index": 1, "globalusage": [{"title": "A", "wiki": "de.wikipedia.org"}]}
		]}}`))
	}))
	defer srv.Close()

	f := NewAPIFetcher(testConfig(srv.URL), nil)
	batch, err := f.Fetch(context.Background(), reconcile.Request{EntityID: "Q1", Language: "en", Size: 2})
	require.NoError(t, err)
	require.Len(t, batch.Items, 1)
	assert.Equal(t, "de.wikipedia.org", batch.Items[0].Usage[0].Site)
	assert.True(t, batch.Cursors.IsFresh())
}

func TestAPIFetcher_Errors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewAPIFetcher(testConfig(srv.URL), nil)

	_, err := f.Fetch(context.Background(), reconcile.Request{EntityID: "Q1", Size: 2})
	assert.ErrorIs(t, err, ErrUpstreamStatus)

	_, err = f.Fetch(context.Background(), reconcile.Request{EntityID: "Q1 OR haswbstatement:P31", Size: 2})
	assert.ErrorIs(t, err, ErrInvalidEntityID)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAPIFetcher_RateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.RequestsPerSecond = 0.01
	cfg.Burst = 1
	f := NewAPIFetcher(cfg, nil)

	_, err := f.Fetch(context.Background(), reconcile.Request{EntityID: "Q1", Size: 2})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = f.Fetch(ctx, reconcile.Request{EntityID: "Q1", Size: 2})
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAPIFetcher_ResolveEntityID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "pageprops", q.Get("prop"))
		assert.Equal(t, "wikibase_item", q.Get("ppprop"))

		switch q.Get("titles") {
		case "London":
			_, _ = w.Write([]byte(`{"query": {"pages": [{"title": "London", "pageprops": {"wikibase_item": "Q84"}}]}}`))
		case "Broken":
			_, _ = w.Write([]byte(`{"query": {"pages": [{"title": "Broken", "pageprops": {"wikibase_item": "not-an-id"}}]}}`))
		default:
			_, _ = w.Write([]byte(`{"query": {"pages": [{"title": "Nowhere", "missing": true}]}}`))
		}
	}))
	defer srv.Close()

	f := NewAPIFetcher(testConfig(srv.URL), nil)

	id, err := f.ResolveEntityID(context.Background(), "London")
	require.NoError(t, err)
	assert.Equal(t, "Q84", id)

	_, err = f.ResolveEntityID(context.Background(), "Nowhere")
	assert.ErrorIs(t, err, ErrEntityNotFound)

	_, err = f.ResolveEntityID(context.Background(), "Broken")
	assert.ErrorIs(t, err, reconcile.ErrMalformedResponse)
}

func TestAPIFetcher_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("meta") != "siteinfo" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"batchcomplete": true, "query": {"general": {"sitename": "Wikimedia Commons"}}}`))
	}))
	defer srv.Close()

	f := NewAPIFetcher(testConfig(srv.URL), nil)
	assert.NoError(t, f.Ping(context.Background()))
	assert.Equal(t, srv.URL, f.Endpoint())
}
