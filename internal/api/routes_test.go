package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"turnout/internal/dispatch"
	"turnout/internal/geo"
	"turnout/internal/search"
	"turnout/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	hits  []search.Hit
	err   error
	calls int
}

func (f *fakeSearcher) Search(context.Context, string, int) ([]search.Hit, error) {
	f.calls++
	return f.hits, f.err
}

type staticGeo map[string]geo.Location

func (s staticGeo) Lookup(ip string) (geo.Location, bool) {
	l, ok := s[ip]
	return l, ok
}

type fakeStats struct {
	t   *store.Totals
	err error
}

func (f fakeStats) GetTotals(context.Context) (*store.Totals, error) { return f.t, f.err }

type denyAll struct{}

func (denyAll) Name() string                                { return "deny" }
func (denyAll) Allow(context.Context, string) (bool, error) { return false, nil }

func postTurnout(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/turnout", strings.NewReader(body))
	req.Header.Set("content-type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTurnout(t *testing.T) {
	fs := &fakeSearcher{hits: []search.Hit{
		{Link: "https://example.org/a.pdf", Snippet: "Turnout was 61%"},
		{Link: "https://example.org/b.csv", Snippet: "precinct totals"},
	}}
	h := BuildRoutes(Deps{Dispatcher: dispatch.New(fs)})

	rec := postTurnout(t, h, `{"location":"Provincetown MA 2024","election_type":"local"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("cache-control"))

	var got struct {
		RequestID string             `json:"request_id"`
		Query     string             `json:"query"`
		NoData    bool               `json:"no_data"`
		Text      string             `json:"text"`
		Items     []dispatch.Item    `json:"items"`
		Sections  []dispatch.Section `json:"sections"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.NotEmpty(t, got.RequestID)
	assert.Equal(t, "Provincetown MA 2024 Local Election Voter Turnout (filetype:pdf OR filetype:csv OR filetype:txt)", got.Query)
	assert.False(t, got.NoData)
	assert.Len(t, got.Items, 2)
	require.Len(t, got.Sections, 2)
	assert.Equal(t, "Voter Turnout Data 1", got.Sections[0].Title)
	assert.Contains(t, got.Text, "Turnout was 61%")
	assert.Equal(t, 1, fs.calls)
}

func TestTurnoutNoData(t *testing.T) {
	h := BuildRoutes(Deps{Dispatcher: dispatch.New(&fakeSearcher{})})
	rec := postTurnout(t, h, `{"location":"Nowhere","election_type":"state"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, true, got["no_data"])
	assert.Equal(t, "No voter turnout data found for Nowhere (State Election).", got["text"])
}

func TestTurnoutErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{"empty location", `{"location":"  ","election_type":"local"}`, nil, http.StatusBadRequest, "no_input"},
		{"empty type", `{"location":"Boston","election_type":""}`, nil, http.StatusBadRequest, "no_input"},
		{"missing credentials", "", &search.Error{Category: search.CategoryMissingCredentials, Err: search.ErrMissingCredentials}, http.StatusServiceUnavailable, "missing_credentials"},
		{"bad key", "", &search.Error{Category: search.CategoryAuthentication, Status: 400}, http.StatusUnauthorized, "authentication"},
		{"quota", "", &search.Error{Category: search.CategoryRateLimited, Status: 429}, http.StatusTooManyRequests, "rate_limited"},
		{"outage", "", &search.Error{Category: search.CategoryOutage, Status: 503}, http.StatusServiceUnavailable, "provider_outage"},
		{"bad request", "", &search.Error{Category: search.CategoryBadRequest, Status: 404}, http.StatusBadGateway, "bad_request"},
		{"network", "", &search.Error{Category: search.CategoryNetwork, Err: errors.New("dial tcp")}, http.StatusBadGateway, "network"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := &fakeSearcher{err: tt.err}
			body := tt.body
			if body == "" {
				body = `{"location":"Boston","election_type":"state"}`
			}
			rec := postTurnout(t, BuildRoutes(Deps{Dispatcher: dispatch.New(fs)}), body)
			assert.Equal(t, tt.status, rec.Code)

			var got errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.code, got.Error)
			assert.NotEmpty(t, got.Message)
			if tt.code == "no_input" {
				assert.Zero(t, fs.calls, "no search for empty input")
			}
		})
	}
}

func TestTurnoutMalformedBody(t *testing.T) {
	fs := &fakeSearcher{}
	rec := postTurnout(t, BuildRoutes(Deps{Dispatcher: dispatch.New(fs)}), `{"location":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, fs.calls)
}

func TestTurnoutRateLimited(t *testing.T) {
	fs := &fakeSearcher{}
	h := BuildRoutes(Deps{Dispatcher: dispatch.New(fs), Limiter: denyAll{}})
	rec := postTurnout(t, h, `{"location":"Boston","election_type":"state"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Zero(t, fs.calls)
}

func TestTurnoutMethod(t *testing.T) {
	h := BuildRoutes(Deps{Dispatcher: dispatch.New(&fakeSearcher{})})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/turnout", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestElectionTypes(t *testing.T) {
	rec := httptest.NewRecorder()
	BuildRoutes(Deps{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/election-types", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got []electionTypeOption
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 5)
	assert.Equal(t, electionTypeOption{Value: "local", Label: "Local Election"}, got[0])
	assert.Equal(t, "Presidential Election", got[4].Label)
}

func TestSuggest(t *testing.T) {
	g := staticGeo{"8.8.8.8": {Country: "United States", Region: "California", City: "Mountain View"}}
	h := BuildRoutes(Deps{Geo: g})

	t.Run("explicit ip", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/suggest?ip=8.8.8.8", nil))
		var got suggestResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.True(t, got.Found)
		assert.Equal(t, "Mountain View, California", got.Suggestion)
	})

	t.Run("visitor ip", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/suggest", nil)
		req.Header.Set("X-Forwarded-For", "8.8.8.8, 10.0.0.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		var got suggestResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "8.8.8.8", got.IP)
		assert.True(t, got.Found)
	})

	t.Run("no locator", func(t *testing.T) {
		rec := httptest.NewRecorder()
		BuildRoutes(Deps{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/suggest?ip=8.8.8.8", nil))
		var got suggestResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.False(t, got.Found)
		assert.Empty(t, got.Suggestion)
	})
}

func TestStats(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		rec := httptest.NewRecorder()
		BuildRoutes(Deps{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
		assert.JSONEq(t, `{"enabled":false}`, rec.Body.String())
	})

	t.Run("totals", func(t *testing.T) {
		st := fakeStats{t: &store.Totals{Total: 7, Today: 2, ByType: map[string]int64{"State Election": 5, "other": 2}}}
		rec := httptest.NewRecorder()
		BuildRoutes(Deps{Stats: st}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
		assert.JSONEq(t, `{"enabled":true,"total":7,"today":2,"by_type":{"State Election":5,"other":2}}`, rec.Body.String())
	})

	t.Run("error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		BuildRoutes(Deps{Stats: fakeStats{err: errors.New("db down")}}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
