package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(context.Background(), Credentials{APIKey: "k", EngineID: "cx"}, WithEndpoint(srv.URL), WithTimeout(2*time.Second))
	require.NoError(t, err)
	return c
}

func TestNewMissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Credentials{APIKey: "k"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingCredentials))
	assert.Equal(t, CategoryMissingCredentials, CategoryOf(err))
	assert.Contains(t, err.Error(), "SEARCH_ENGINE_ID")

	_, err = New(context.Background(), Credentials{})
	assert.Contains(t, err.Error(), "SEARCH_API_KEY")
}

func TestClampNum(t *testing.T) {
	assert.Equal(t, 5, ClampNum(0))
	assert.Equal(t, 5, ClampNum(-3))
	assert.Equal(t, 3, ClampNum(3))
	assert.Equal(t, 10, ClampNum(25))
}

func TestSearch(t *testing.T) {
	t.Run("sends credentials and query", func(t *testing.T) {
		var got map[string]string
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/customsearch/v1", r.URL.Path)
			q := r.URL.Query()
			got = map[string]string{"key": q.Get("key"), "cx": q.Get("cx"), "q": q.Get("q"), "num": q.Get("num")}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"items":[
				{"link":"https://example.org/a.pdf","title":"A","snippet":" turnout was 61% ","mime":"application/pdf"},
				{"title":"no link"},
				{"link":"https://example.org/b.csv","title":"B","snippet":"b"}
			]}`))
		})

		hits, err := c.Search(context.Background(), "Provincetown MA 2024 Local Election Voter Turnout", 20)
		require.NoError(t, err)
		assert.Equal(t, "k", got["key"])
		assert.Equal(t, "cx", got["cx"])
		assert.Equal(t, "Provincetown MA 2024 Local Election Voter Turnout", got["q"])
		assert.Equal(t, "10", got["num"])

		require.Len(t, hits, 2)
		assert.Equal(t, Hit{Link: "https://example.org/a.pdf", Title: "A", Snippet: "turnout was 61%"}, hits[0])
		assert.Equal(t, "https://example.org/b.csv", hits[1].Link)
	})

	t.Run("no items is not an error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"searchInformation":{"totalResults":"0"}}`))
		})
		hits, err := c.Search(context.Background(), "nothing", 5)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})
}

func TestSearchErrorCategories(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		category Category
	}{
		{"invalid key", 400, `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","errors":[{"reason":"badRequest"}]}}`, CategoryAuthentication},
		{"forbidden", 403, `{"error":{"code":403,"message":"This project does not have the access"}}`, CategoryAuthentication},
		{"rate limited", 429, `{"error":{"code":429,"message":"Quota exceeded"}}`, CategoryRateLimited},
		{"outage", 503, `{"error":{"code":503,"message":"Backend Error"}}`, CategoryOutage},
		{"bad request", 400, `{"error":{"code":400,"message":"Invalid Value","errors":[{"reason":"invalid"}]}}`, CategoryBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.Search(context.Background(), "q", 5)
			require.Error(t, err)

			var se *Error
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.category, se.Category)
			assert.Equal(t, tt.status, se.Status)
			assert.Equal(t, tt.category, CategoryOf(err))
		})
	}
}

func TestSearchNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(context.Background(), Credentials{APIKey: "k", EngineID: "cx"}, WithEndpoint(url))
	require.NoError(t, err)
	_, err = c.Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.Equal(t, CategoryNetwork, CategoryOf(err))
}

func TestSearchTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})
	c.timeout = 50 * time.Millisecond
	_, err := c.Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.Equal(t, CategoryNetwork, CategoryOf(err))
}

func TestCategoryOfPlainError(t *testing.T) {
	assert.Equal(t, CategoryNetwork, CategoryOf(errors.New("boom")))
}
