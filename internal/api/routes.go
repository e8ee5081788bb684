// 包 api：集中注册 HTTP API 路由以解耦主入口，便于后续扩展与替换
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"turnout/internal/dispatch"
	"turnout/internal/geo"
	"turnout/internal/logger"
	"turnout/internal/metrics"
	"turnout/internal/middleware"
	"turnout/internal/search"
)

// maxBodyBytes：查询请求体上限，两个短文本字段足够
const maxBodyBytes = 64 << 10

// Deps：路由依赖；Geo、Stats、Limiter、Proxies 均可为 nil
type Deps struct {
	Dispatcher Dispatcher
	Geo        geo.Locator
	Stats      StatsSource
	Limiter    middleware.Limiter
	Proxies    *middleware.Proxies
}

// 构建并返回 API 路由：独立 ServeMux 便于在主入口挂载到 /api 前缀
func BuildRoutes(d Deps) *http.ServeMux {
	apiMux := http.NewServeMux()
	apiMux.Handle("POST /turnout", middleware.Limit(d.Limiter, d.Proxies, http.HandlerFunc(d.turnout)))
	apiMux.HandleFunc("GET /election-types", electionTypes)
	apiMux.HandleFunc("GET /suggest", d.suggest)
	apiMux.HandleFunc("GET /stats", d.stats)
	return apiMux
}

func (d Deps) turnout(w http.ResponseWriter, r *http.Request) {
	var req dispatch.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:     "bad_request",
			Message:   "Request body must be JSON with location and election_type.",
			RequestID: logger.RequestID(r.Context()),
		})
		return
	}
	res, err := d.Dispatcher.Dispatch(r.Context(), req)
	if err != nil {
		writeJSON(w, StatusOf(err), errorResponse{
			Error:     ErrorCode(err),
			Message:   dispatch.UserMessage(err),
			RequestID: logger.RequestID(r.Context()),
		})
		return
	}
	writeJSON(w, http.StatusOK, turnoutResponse{Result: res, Text: res.Text(), Sections: res.Sections()})
}

func electionTypes(w http.ResponseWriter, r *http.Request) {
	out := make([]electionTypeOption, 0, len(dispatch.ElectionTypes))
	for _, e := range dispatch.ElectionTypes {
		out = append(out, electionTypeOption{Value: string(e), Label: e.Label()})
	}
	writeJSON(w, http.StatusOK, out)
}

// suggest：显式 ip 参数优先，否则使用访问者 IP
func (d Deps) suggest(w http.ResponseWriter, r *http.Request) {
	ip := strings.TrimSpace(r.URL.Query().Get("ip"))
	if ip == "" {
		ip = d.Proxies.ClientIP(r)
	}
	res := suggestResponse{IP: ip}
	if d.Geo != nil {
		if loc, ok := d.Geo.Lookup(ip); ok {
			res.Found = true
			res.Suggestion = loc.Suggestion()
			res.Country, res.Region, res.City = loc.Country, loc.Region, loc.City
		}
	}
	if res.Found {
		metrics.SuggestTotal.WithLabelValues("hit").Inc()
	} else {
		metrics.SuggestTotal.WithLabelValues("miss").Inc()
	}
	writeJSON(w, http.StatusOK, res)
}

func (d Deps) stats(w http.ResponseWriter, r *http.Request) {
	if d.Stats == nil {
		writeJSON(w, http.StatusOK, map[string]any{"enabled": false})
		return
	}
	t, err := d.Stats.GetTotals(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("stats_error", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "stats_unavailable", Message: "Usage statistics are unavailable."})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"enabled": true, "total": t.Total, "today": t.Today, "by_type": t.ByType})
}

// StatusOf：调度错误到 HTTP 状态码
// 约束：上游鉴权失败返回 401 提示运维检查凭据；配置缺失与上游故障返回 503
func StatusOf(err error) int {
	if errors.Is(err, dispatch.ErrNoInput) {
		return http.StatusBadRequest
	}
	switch search.CategoryOf(err) {
	case search.CategoryMissingCredentials, search.CategoryOutage:
		return http.StatusServiceUnavailable
	case search.CategoryAuthentication:
		return http.StatusUnauthorized
	case search.CategoryRateLimited:
		return http.StatusTooManyRequests
	}
	return http.StatusBadGateway
}

// ErrorCode：机器可读的错误类别
func ErrorCode(err error) string {
	if errors.Is(err, dispatch.ErrNoInput) {
		return "no_input"
	}
	return string(search.CategoryOf(err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
