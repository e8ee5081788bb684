// Package dispatch 实现查询调度：校验输入、组装查询串、调用搜索 API，
// 可选地逐条下载文档生成摘要，并返回可展示的文本结果。
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"
	"turnout/internal/logger"
	"turnout/internal/metrics"
	"turnout/internal/search"

	"github.com/google/uuid"
)

// Request：一次表单提交
type Request struct {
	Location     string `json:"location"`
	ElectionType string `json:"election_type"`
}

// Summarizer：按链接生成摘要；为 nil 时只展示搜索片段
type Summarizer interface {
	Summarize(ctx context.Context, link, question string) (string, error)
}

// Counter：用量计数，失败不影响查询结果
type Counter interface {
	IncrQuery(ctx context.Context, electionType string) error
}

type Dispatcher struct {
	searcher   search.Searcher
	summarizer Summarizer
	counter    Counter
	num        int
	question   string
	fileTypes  []string
}

type Option func(*Dispatcher)

func WithSummarizer(s Summarizer) Option { return func(d *Dispatcher) { d.summarizer = s } }
func WithCounter(c Counter) Option       { return func(d *Dispatcher) { d.counter = c } }
func WithNumResults(n int) Option        { return func(d *Dispatcher) { d.num = n } }
func WithQuestion(q string) Option       { return func(d *Dispatcher) { d.question = q } }
func WithFileTypes(ft ...string) Option  { return func(d *Dispatcher) { d.fileTypes = ft } }

func New(s search.Searcher, opts ...Option) *Dispatcher {
	d := &Dispatcher{searcher: s, num: search.DefaultNum}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Dispatch：处理一次查询
// 约束：空输入返回 ErrNoInput 且不发起请求；零结果返回 NoData=true 与 nil 错误；
// 不重试、不缓存；摘要按结果顺序串行生成，单条失败时该条回退为搜索片段
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Result, error) {
	id := logger.RequestID(ctx)
	if id == "" {
		id = uuid.NewString()
		ctx = logger.WithRequestID(ctx, id)
	}
	log := logger.FromContext(ctx)
	t0 := time.Now()
	defer func() { metrics.DispatchDurationMs.Observe(float64(time.Since(t0).Milliseconds())) }()

	loc := strings.TrimSpace(req.Location)
	et := strings.TrimSpace(req.ElectionType)
	switch {
	case loc == "":
		metrics.DispatchTotal.WithLabelValues("no_input").Inc()
		return nil, fmt.Errorf("%w: location is required", ErrNoInput)
	case et == "":
		metrics.DispatchTotal.WithLabelValues("no_input").Inc()
		return nil, fmt.Errorf("%w: election type is required", ErrNoInput)
	}

	res := &Result{
		RequestID:    id,
		Location:     loc,
		ElectionType: NormalizeElectionType(et),
		Query:        BuildQuery(loc, et, d.fileTypes...),
		Items:        []Item{},
	}
	log.Info("dispatch_begin", "location", loc, "election_type", res.ElectionType)

	hits, err := d.searcher.Search(ctx, res.Query, d.num)
	if err != nil {
		metrics.DispatchTotal.WithLabelValues(string(search.CategoryOf(err))).Inc()
		log.Error("dispatch_search_error", "category", search.CategoryOf(err), "err", err)
		return nil, err
	}
	d.count(ctx, res.ElectionType)
	if len(hits) == 0 {
		res.NoData = true
		metrics.NoDataTotal.Inc()
		metrics.DispatchTotal.WithLabelValues("no_data").Inc()
		log.Info("dispatch_no_data", "duration_ms", time.Since(t0).Milliseconds())
		return res, nil
	}

	for _, h := range hits {
		it := Item{Link: h.Link, Title: h.Title, Snippet: h.Snippet}
		if d.summarizer != nil && ctx.Err() == nil {
			if s, err := d.summarizer.Summarize(ctx, h.Link, d.question); err == nil {
				it.Summary = s
			}
		}
		res.Items = append(res.Items, it)
	}
	metrics.DispatchTotal.WithLabelValues("ok").Inc()
	log.Info("dispatch_done", "items", len(res.Items), "duration_ms", time.Since(t0).Milliseconds())
	return res, nil
}

func (d *Dispatcher) count(ctx context.Context, electionType string) {
	if d.counter == nil {
		return
	}
	if err := d.counter.IncrQuery(ctx, electionType); err != nil {
		logger.FromContext(ctx).Warn("dispatch_count_error", "err", err)
	}
}
