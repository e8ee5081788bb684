package api

import (
	"context"
	"turnout/internal/dispatch"
	"turnout/internal/store"
)

// 文档注释：查询调度抽象
// 背景：路由层只依赖调度结果与错误语义，测试可直接替换为假实现。
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) (*dispatch.Result, error)
}

// StatsSource：用量计数来源；未配置数据库时为 nil
type StatsSource interface {
	GetTotals(ctx context.Context) (*store.Totals, error)
}

// 文档注释：查询返回结构（对外）
// 约束：Text 与页面展示文本一致；字段新增需评估前端依赖。
type turnoutResponse struct {
	*dispatch.Result
	Text     string             `json:"text"`
	Sections []dispatch.Section `json:"sections"`
}

// 错误返回结构：error 为稳定的机器可读类别，message 为展示文案
type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type suggestResponse struct {
	IP         string `json:"ip"`
	Found      bool   `json:"found"`
	Suggestion string `json:"suggestion"`
	Country    string `json:"country,omitempty"`
	Region     string `json:"region,omitempty"`
	City       string `json:"city,omitempty"`
}

type electionTypeOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}
