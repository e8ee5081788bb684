package summarize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

var (
	ErrUnsupportedLink = errors.New("unsupported document link")
	ErrTooLarge        = errors.New("document exceeds size limit")
)

// Document：下载后的文档内容与 MIME 类型
type Document struct {
	Link     string
	Name     string
	MimeType string
	Data     []byte
}

// IsText：文本类文档以文本片段发送给模型，其余以内联二进制发送
func (d *Document) IsText() bool {
	return strings.HasPrefix(d.MimeType, "text/") || d.MimeType == "application/json"
}

var extTypes = map[string]string{
	".pdf":  "application/pdf",
	".csv":  "text/csv",
	".txt":  "text/plain",
	".html": "text/html",
	".htm":  "text/html",
	".json": "application/json",
}

// Fetcher：按链接下载文档
// 约束：仅支持 http/https；非 200 视为失败；超过 maxBytes 直接报错，不截断
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

func NewFetcher(client *http.Client, maxBytes int64) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxBytes <= 0 {
		maxBytes = 20 << 20
	}
	return &Fetcher{client: client, maxBytes: maxBytes}
}

func (f *Fetcher) Fetch(ctx context.Context, link string) (*Document, error) {
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLink, link)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: status %d", link, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", link, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, link)
	}
	name := path.Base(u.Path)
	return &Document{
		Link:     link,
		Name:     name,
		MimeType: detectType(resp.Header.Get("Content-Type"), name),
		Data:     data,
	}, nil
}

// detectType：优先响应头；缺失或为通用二进制时按扩展名推断，默认按 PDF 处理
func detectType(header, name string) string {
	if header != "" {
		if mt, _, err := mime.ParseMediaType(header); err == nil && mt != "application/octet-stream" {
			return mt
		}
	}
	if t, ok := extTypes[strings.ToLower(path.Ext(name))]; ok {
		return t
	}
	return "application/pdf"
}
