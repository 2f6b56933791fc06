package tool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBraveSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Subscription-Token"))
		assert.Equal(t, "seo audit", r.URL.Query().Get("q"))
		assert.Equal(t, "3", r.URL.Query().Get("count"))
		_, _ = w.Write([]byte(`{"web":{"results":[
			{"title":"SEO audit checklist","url":"https://example.com/seo","description":"Crawl, index, rank."}
		]}}`))
	}))
	defer srv.Close()

	b, err := NewBraveSearch("secret", WithBraveBaseURL(srv.URL))
	require.NoError(t, err)

	resp, err := b.Search(context.Background(), "seo audit", 3)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Crawl, index, rank.", resp.Results[0].Content)
	assert.Equal(t, "seo audit", resp.Query)
}

func TestBraveSearch_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	b, err := NewBraveSearch("secret", WithBraveBaseURL(srv.URL), WithBraveCount(0))
	require.NoError(t, err)
	assert.Equal(t, 1, b.Count)

	_, err = b.Call(context.Background(), "anything")
	assert.ErrorContains(t, err, "401")
}
