package dispatch

import (
	"fmt"
	"strings"
)

type Item struct {
	Link    string `json:"link"`
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// Body：摘要优先，缺失时使用搜索摘要片段
func (it Item) Body() string {
	switch {
	case it.Summary != "":
		return it.Summary
	case it.Snippet != "":
		return it.Snippet
	}
	return "(no summary available)"
}

type Section struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type Result struct {
	RequestID    string `json:"request_id"`
	Location     string `json:"location"`
	ElectionType string `json:"election_type"`
	Query        string `json:"query"`
	NoData       bool   `json:"no_data"`
	Items        []Item `json:"items"`
}

// NoDataMessage：零结果时展示的固定文案
func (r *Result) NoDataMessage() string {
	return fmt.Sprintf("No voter turnout data found for %s (%s).", r.Location, r.ElectionType)
}

// Sections：每条结果一个文本区块，标题从 1 开始编号
func (r *Result) Sections() []Section {
	out := make([]Section, 0, len(r.Items))
	for i, it := range r.Items {
		out = append(out, Section{
			Title: fmt.Sprintf("Voter Turnout Data %d", i+1),
			Body:  it.Link + "\n\n" + it.Body(),
		})
	}
	return out
}

// Text：整段可展示文本；NoData 时为固定文案
func (r *Result) Text() string {
	if r.NoData || len(r.Items) == 0 {
		return r.NoDataMessage()
	}
	parts := make([]string, 0, len(r.Items))
	for _, s := range r.Sections() {
		parts = append(parts, s.Title+"\n"+s.Body)
	}
	return strings.Join(parts, "\n\n")
}
