package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"turnout/internal/config"
	"turnout/internal/dispatch"
	"turnout/internal/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countCalls struct{ n int }

func (c *countCalls) IncrQuery(context.Context, string) error {
	c.n++
	return nil
}

func TestNewDispatcherMissingCredentials(t *testing.T) {
	d := NewDispatcher(context.Background(), config.Config{}, nil)
	_, err := d.Dispatch(context.Background(), dispatch.Request{Location: "Boston", ElectionType: "state"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, search.ErrMissingCredentials))
	assert.Equal(t, search.CategoryMissingCredentials, search.CategoryOf(err))
}

func TestNewDispatcherSearch(t *testing.T) {
	var gotNum, gotQ string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotNum = r.URL.Query().Get("num")
		gotQ = r.URL.Query().Get("q")
		w.Header().Set("content-type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"link":"https://example.org/t.pdf","title":"Turnout","snippet":"52% of voters"}]}`))
	}))
	defer srv.Close()

	cfg := config.Config{
		Creds:  config.Credentials{APIKey: "k", EngineID: "cx"},
		Search: config.Search{Endpoint: srv.URL, NumResults: 25, Timeout: 5 * time.Second, FileTypes: []string{"pdf", "xlsx"}},
	}
	c := &countCalls{}
	d := NewDispatcher(context.Background(), cfg, c)
	res, err := d.Dispatch(context.Background(), dispatch.Request{Location: "Boston", ElectionType: "state"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "52% of voters", res.Items[0].Body())
	assert.Equal(t, "10", gotNum, "num clamped to the API maximum")
	assert.Equal(t, "Boston State Election Voter Turnout (filetype:pdf OR filetype:xlsx)", gotQ)
	assert.Equal(t, gotQ, res.Query)
	assert.Equal(t, 1, c.n)
}
