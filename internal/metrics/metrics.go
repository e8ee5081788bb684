package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DispatchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "turnout_dispatch_total",
		Help: "Total number of turnout queries by outcome",
	}, []string{"outcome"})
	DispatchDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "turnout_dispatch_duration_ms",
		Help:    "End-to-end dispatch duration in milliseconds",
		Buckets: []float64{50, 100, 200, 500, 1000, 2000, 5000, 10000, 30000, 60000},
	})
	NoDataTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "turnout_no_data_total",
		Help: "Total number of queries that returned no search results",
	})
	SearchRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "turnout_search_requests_total",
		Help: "Total custom search API requests",
	})
	SearchFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "turnout_search_fail_total",
		Help: "Total custom search API failures by category",
	}, []string{"category"})
	SearchDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "turnout_search_duration_ms",
		Help:    "Custom search API call duration in milliseconds",
		Buckets: []float64{10, 20, 50, 100, 200, 500, 1000, 2000, 5000},
	})
	SummarizeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "turnout_summarize_total",
		Help: "Document summaries by stage and status",
	}, []string{"stage", "status"})
	SummarizeDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "turnout_summarize_duration_ms",
		Help:    "Per-document download plus model duration in milliseconds",
		Buckets: []float64{100, 500, 1000, 2000, 5000, 10000, 30000, 60000},
	})
	RateLimitedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "turnout_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	}, []string{"limiter"})
	SuggestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "turnout_suggest_total",
		Help: "Location suggestions by result",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(DispatchTotal)
	prometheus.MustRegister(DispatchDurationMs)
	prometheus.MustRegister(NoDataTotal)
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchFailTotal)
	prometheus.MustRegister(SearchDurationMs)
	prometheus.MustRegister(SummarizeTotal)
	prometheus.MustRegister(SummarizeDurationMs)
	prometheus.MustRegister(RateLimitedTotal)
	prometheus.MustRegister(SuggestTotal)
}

// Handler：Prometheus 抓取入口，在主入口挂载到 <API_BASE>/metrics
func Handler() http.Handler { return promhttp.Handler() }
