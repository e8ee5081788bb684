// 包 app：按配置组装查询调度链路，服务入口与命令行工具共用
package app

import (
	"context"
	"net/http"
	"turnout/internal/config"
	"turnout/internal/dispatch"
	"turnout/internal/logger"
	"turnout/internal/search"
	"turnout/internal/summarize"
)

// NewDispatcher：搜索客户端 + 可选摘要 + 可选计数
// 约束：搜索凭据缺失时不返回错误，调度器在每次查询时返回 missing_credentials，
// 服务仍可启动并向用户展示配置缺失提示
func NewDispatcher(ctx context.Context, cfg config.Config, counter dispatch.Counter) *dispatch.Dispatcher {
	l := logger.L()
	var s search.Searcher
	c, err := search.New(ctx,
		search.Credentials{APIKey: cfg.Creds.APIKey, EngineID: cfg.Creds.EngineID},
		search.WithEndpoint(cfg.Search.Endpoint),
		search.WithTimeout(cfg.Search.Timeout),
	)
	if err != nil {
		l.Error("search_init_error", "category", search.CategoryOf(err), "err", err)
		s = search.Unavailable(err)
	} else {
		l.Info("search_ready", "num", search.ClampNum(cfg.Search.NumResults))
		s = c
	}

	opts := []dispatch.Option{
		dispatch.WithNumResults(search.ClampNum(cfg.Search.NumResults)),
		dispatch.WithQuestion(cfg.Summarize.Question),
		dispatch.WithFileTypes(cfg.Search.FileTypes...),
	}
	if counter != nil {
		opts = append(opts, dispatch.WithCounter(counter))
	}
	if sm := newSummarizer(ctx, cfg.Creds.ProjectID, cfg.Summarize); sm != nil {
		opts = append(opts, dispatch.WithSummarizer(sm))
	}
	return dispatch.New(s, opts...)
}

func newSummarizer(ctx context.Context, projectID string, sc config.Summarize) *summarize.Summarizer {
	l := logger.L()
	if !sc.Enabled {
		l.Info("summarize_disabled")
		return nil
	}
	g, err := summarize.NewGemini(ctx, summarize.GeminiConfig{
		ProjectID: projectID,
		Location:  sc.Location,
		Model:     sc.Model,
		Endpoint:  sc.Endpoint,
		Timeout:   sc.ModelTimeout,
	})
	if err != nil {
		l.Error("summarize_init_error", "err", err)
		return nil
	}
	f := summarize.NewFetcher(&http.Client{Timeout: sc.FetchTimeout}, sc.MaxDocumentSize)
	l.Info("summarize_ready", "model", g.Model())
	return summarize.New(f, g)
}
