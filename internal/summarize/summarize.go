// Package summarize 下载搜索命中的文档并向生成模型提问，得到可直接展示的投票率摘要。
package summarize

import (
	"context"
	"time"
	"turnout/internal/logger"
	"turnout/internal/metrics"
)

// DefaultQuestion：向模型提出的固定问题
const DefaultQuestion = "What is the voter turnout?"

// Summarizer：Fetcher + Answerer 的组合，一次处理一个链接
type Summarizer struct {
	fetcher  *Fetcher
	answerer Answerer
}

func New(f *Fetcher, a Answerer) *Summarizer {
	return &Summarizer{fetcher: f, answerer: a}
}

// Summarize：下载 link 指向的文档并回答 question；question 为空时使用 DefaultQuestion
func (s *Summarizer) Summarize(ctx context.Context, link, question string) (string, error) {
	if question == "" {
		question = DefaultQuestion
	}
	log := logger.FromContext(ctx)
	t0 := time.Now()
	defer func() { metrics.SummarizeDurationMs.Observe(float64(time.Since(t0).Milliseconds())) }()

	doc, err := s.fetcher.Fetch(ctx, link)
	if err != nil {
		metrics.SummarizeTotal.WithLabelValues("fetch", "fail").Inc()
		log.Warn("summarize_fetch_error", "link", link, "err", err)
		return "", err
	}
	metrics.SummarizeTotal.WithLabelValues("fetch", "ok").Inc()
	log.Debug("summarize_fetch_ok", "link", link, "mime", doc.MimeType, "bytes", len(doc.Data))

	answer, err := s.answerer.Answer(ctx, doc, question)
	if err != nil {
		metrics.SummarizeTotal.WithLabelValues("model", "fail").Inc()
		log.Warn("summarize_model_error", "link", link, "err", err)
		return "", err
	}
	metrics.SummarizeTotal.WithLabelValues("model", "ok").Inc()
	log.Debug("summarize_ok", "link", link, "chars", len(answer), "duration_ms", time.Since(t0).Milliseconds())
	return answer, nil
}
