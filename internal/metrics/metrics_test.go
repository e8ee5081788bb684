package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(DispatchTotal.WithLabelValues("ok"))
	DispatchTotal.WithLabelValues("ok").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(DispatchTotal.WithLabelValues("ok")))

	RateLimitedTotal.WithLabelValues("token_bucket").Inc()
	assert.GreaterOrEqual(t, testutil.ToFloat64(RateLimitedTotal.WithLabelValues("token_bucket")), 1.0)
}

func TestHandler(t *testing.T) {
	NoDataTotal.Inc()
	SearchFailTotal.WithLabelValues("network").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "turnout_no_data_total")
	assert.Contains(t, body, `turnout_search_fail_total{category="network"}`)
}
