// Package search 封装 Google Custom Search JSON API，作为投票率查询的外部数据源。
package search

import (
	"context"
	"strings"
	"time"
	"turnout/internal/logger"
	"turnout/internal/metrics"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

const (
	DefaultNum     = 5
	MaxNum         = 10
	defaultTimeout = 10 * time.Second
)

// Credentials：搜索所需的 key 与 cx；project id 由模型问答使用，不在此处
type Credentials struct {
	APIKey   string
	EngineID string
}

// Hit：单条搜索结果，仅保留展示与下载所需字段
type Hit struct {
	Link    string `json:"link"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Searcher：调度器依赖的最小接口
type Searcher interface {
	Search(ctx context.Context, query string, num int) ([]Hit, error)
}

type settings struct {
	endpoint string
	timeout  time.Duration
}

type Option func(*settings)

// WithEndpoint：覆盖 API 根地址（以 / 结尾），用于自建代理与测试
func WithEndpoint(u string) Option { return func(s *settings) { s.endpoint = u } }

// WithTimeout：单次调用超时，<=0 时使用默认 10s
func WithTimeout(d time.Duration) Option { return func(s *settings) { s.timeout = d } }

type Client struct {
	svc     *customsearch.Service
	cx      string
	timeout time.Duration
}

// New：校验凭据并创建客户端
// 约束：凭据缺失返回分类为 missing_credentials 的错误，不发起任何网络请求
func New(ctx context.Context, creds Credentials, opts ...Option) (*Client, error) {
	var missing []string
	if creds.APIKey == "" {
		missing = append(missing, "SEARCH_API_KEY")
	}
	if creds.EngineID == "" {
		missing = append(missing, "SEARCH_ENGINE_ID")
	}
	if len(missing) > 0 {
		return nil, missingCredentials(missing)
	}
	s := settings{timeout: defaultTimeout}
	for _, o := range opts {
		o(&s)
	}
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}
	copts := []option.ClientOption{option.WithAPIKey(creds.APIKey)}
	if s.endpoint != "" {
		ep := s.endpoint
		if !strings.HasSuffix(ep, "/") {
			ep += "/"
		}
		copts = append(copts, option.WithEndpoint(ep))
	}
	svc, err := customsearch.NewService(ctx, copts...)
	if err != nil {
		return nil, &Error{Category: CategoryBadRequest, Message: "client init", Err: err}
	}
	return &Client{svc: svc, cx: creds.EngineID, timeout: s.timeout}, nil
}

// ClampNum：API 单页最多 10 条；非正数取默认 5
func ClampNum(num int) int {
	if num <= 0 {
		return DefaultNum
	}
	if num > MaxNum {
		return MaxNum
	}
	return num
}

// Search：执行一次查询并返回有链接的结果；零结果返回空切片与 nil 错误
func (c *Client) Search(ctx context.Context, query string, num int) ([]Hit, error) {
	num = ClampNum(num)
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	log := logger.FromContext(ctx)
	t0 := time.Now()
	metrics.SearchRequestsTotal.Inc()
	log.Debug("search_req", "q", query, "num", num)
	res, err := c.svc.Cse.List().Cx(c.cx).Q(query).Num(int64(num)).Context(ctx).Do()
	dur := time.Since(t0).Milliseconds()
	metrics.SearchDurationMs.Observe(float64(dur))
	if err != nil {
		e := classify(err)
		metrics.SearchFailTotal.WithLabelValues(string(e.Category)).Inc()
		log.Error("search_error", "category", e.Category, "status", e.Status, "err", err, "duration_ms", dur)
		return nil, e
	}
	hits := make([]Hit, 0, len(res.Items))
	for _, it := range res.Items {
		if it == nil || it.Link == "" {
			continue
		}
		hits = append(hits, Hit{Link: it.Link, Title: it.Title, Snippet: strings.TrimSpace(it.Snippet)})
	}
	log.Debug("search_resp", "hits", len(hits), "duration_ms", dur)
	return hits, nil
}

type unavailable struct{ err error }

// Unavailable：客户端无法创建时的占位实现，每次调用返回创建时的错误
func Unavailable(err error) Searcher { return unavailable{err: err} }

func (u unavailable) Search(context.Context, string, int) ([]Hit, error) { return nil, u.err }
