package summarize

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	aiplatform "google.golang.org/api/aiplatform/v1"
	"google.golang.org/api/option"
)

// Instruction：附加在问题之后的回答要求
const Instruction = "Be thorough. Include all relevant context of the question, the document, and anything else in the answer. Use numbers and statistics."

var ErrEmptyAnswer = errors.New("model returned no answer")

// Answerer：针对单个文档回答问题
type Answerer interface {
	Answer(ctx context.Context, doc *Document, question string) (string, error)
}

// GeminiConfig：Vertex AI 调用参数；Endpoint 为空时使用 <location>-aiplatform.googleapis.com
type GeminiConfig struct {
	ProjectID string
	Location  string
	Model     string
	Endpoint  string
	Timeout   time.Duration
}

// Gemini：通过 Vertex AI generateContent 回答文档问题
type Gemini struct {
	svc     *aiplatform.Service
	model   string
	timeout time.Duration
}

// NewGemini：创建 Vertex AI 客户端，默认使用应用默认凭据（ADC）
func NewGemini(ctx context.Context, cfg GeminiConfig, opts ...option.ClientOption) (*Gemini, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("missing GCP_PROJECT_ID")
	}
	if cfg.Location == "" {
		cfg.Location = "us-central1"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash-001"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	ep := cfg.Endpoint
	if ep == "" {
		ep = "https://" + cfg.Location + "-aiplatform.googleapis.com/"
	}
	if !strings.HasSuffix(ep, "/") {
		ep += "/"
	}
	opts = append([]option.ClientOption{option.WithEndpoint(ep)}, opts...)
	svc, err := aiplatform.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vertex client: %w", err)
	}
	return &Gemini{
		svc:     svc,
		model:   fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s", cfg.ProjectID, cfg.Location, cfg.Model),
		timeout: cfg.Timeout,
	}, nil
}

// Model：完整资源名
func (g *Gemini) Model() string { return g.model }

func (g *Gemini) Answer(ctx context.Context, doc *Document, question string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req := &aiplatform.GoogleCloudAiplatformV1GenerateContentRequest{
		Contents: []*aiplatform.GoogleCloudAiplatformV1Content{{
			Role:  "user",
			Parts: buildParts(doc, question),
		}},
	}
	resp, err := g.svc.Projects.Locations.Publishers.Models.GenerateContent(g.model, req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return answerText(resp)
}

// buildParts：文档 + 问题 + 回答要求，顺序固定
func buildParts(doc *Document, question string) []*aiplatform.GoogleCloudAiplatformV1Part {
	var docPart *aiplatform.GoogleCloudAiplatformV1Part
	if doc.IsText() {
		docPart = &aiplatform.GoogleCloudAiplatformV1Part{Text: string(doc.Data)}
	} else {
		docPart = &aiplatform.GoogleCloudAiplatformV1Part{InlineData: &aiplatform.GoogleCloudAiplatformV1Blob{
			MimeType: doc.MimeType,
			Data:     base64.StdEncoding.EncodeToString(doc.Data),
		}}
	}
	return []*aiplatform.GoogleCloudAiplatformV1Part{
		docPart,
		{Text: question},
		{Text: Instruction},
	}
}

func answerText(resp *aiplatform.GoogleCloudAiplatformV1GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", ErrEmptyAnswer
	}
	var b strings.Builder
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p != nil && p.Text != "" {
				b.WriteString(p.Text)
			}
		}
		// 只取第一个有内容的候选
		if b.Len() > 0 {
			break
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: blocked (%s)", ErrEmptyAnswer, resp.PromptFeedback.BlockReason)
		}
		return "", ErrEmptyAnswer
	}
	return out, nil
}
