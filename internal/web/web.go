// 包 web：服务端渲染的查询表单与结果文本框
package web

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"net/http"
	"turnout/internal/dispatch"
	"turnout/internal/geo"
	"turnout/internal/logger"
	"turnout/internal/middleware"
)

//go:embed templates/index.html
var files embed.FS

var page = template.Must(template.ParseFS(files, "templates/index.html"))

// Dispatcher：与 api 包相同的调度抽象
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) (*dispatch.Result, error)
}

// Page：模板数据；Result 与 Error 互斥
type Page struct {
	Action        string
	Location      string
	ElectionType  string
	Suggestion    string
	ElectionTypes []string
	Result        *dispatch.Result
	Error         string
	RequestID     string
}

type Handler struct {
	d       Dispatcher
	geo     geo.Locator
	limiter middleware.Limiter
	proxies *middleware.Proxies
}

// New：geo、limiter 与 proxies 可为 nil
func New(d Dispatcher, g geo.Locator, l middleware.Limiter, p *middleware.Proxies) *Handler {
	return &Handler{d: d, geo: g, limiter: l, proxies: p}
}

// Routes：GET / 渲染空表单，POST / 执行查询并渲染结果
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.form)
	mux.Handle("POST /{$}", middleware.Limit(h.limiter, h.proxies, http.HandlerFunc(h.submit)))
	return mux
}

func (h *Handler) newPage(r *http.Request) *Page {
	p := &Page{Action: "/", RequestID: logger.RequestID(r.Context())}
	for _, e := range dispatch.ElectionTypes {
		p.ElectionTypes = append(p.ElectionTypes, e.Label())
	}
	if h.geo != nil {
		if loc, ok := h.geo.Lookup(h.proxies.ClientIP(r)); ok {
			p.Suggestion = loc.Suggestion()
		}
	}
	return p
}

func (h *Handler) form(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, h.newPage(r))
}

// submit：错误以文案形式展示在页面中，不向外暴露内部细节
func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	p := h.newPage(r)
	if err := r.ParseForm(); err != nil {
		p.Error = dispatch.UserMessage(dispatch.ErrNoInput)
		h.render(w, r, http.StatusBadRequest, p)
		return
	}
	p.Location = r.PostFormValue("location")
	p.ElectionType = r.PostFormValue("election_type")
	res, err := h.d.Dispatch(r.Context(), dispatch.Request{Location: p.Location, ElectionType: p.ElectionType})
	if err != nil {
		p.Error = dispatch.UserMessage(err)
		h.render(w, r, http.StatusOK, p)
		return
	}
	p.Result = res
	p.RequestID = res.RequestID
	h.render(w, r, http.StatusOK, p)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, p *Page) {
	var buf bytes.Buffer
	if err := page.Execute(&buf, p); err != nil {
		logger.FromContext(r.Context()).Error("render_error", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("content-type", "text/html; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
