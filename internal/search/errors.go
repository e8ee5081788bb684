package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
)

// Category：搜索失败的归一化分类
type Category string

const (
	CategoryMissingCredentials Category = "missing_credentials"
	CategoryAuthentication     Category = "authentication"
	CategoryRateLimited        Category = "rate_limited"
	CategoryOutage             Category = "provider_outage"
	CategoryBadRequest         Category = "bad_request"
	CategoryNetwork            Category = "network"
)

// ErrMissingCredentials：API key 或 search engine id 为空，未发起网络请求
var ErrMissingCredentials = errors.New("missing search credentials")

// Error：搜索调用失败，携带分类与上游 HTTP 状态
type Error struct {
	Category Category
	Status   int
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("search [%s]: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("search [%s]: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// CategoryOf：提取错误分类；非搜索错误归为 network
func CategoryOf(err error) Category {
	var se *Error
	if errors.As(err, &se) {
		return se.Category
	}
	if errors.Is(err, ErrMissingCredentials) {
		return CategoryMissingCredentials
	}
	return CategoryNetwork
}

func missingCredentials(names []string) *Error {
	return &Error{
		Category: CategoryMissingCredentials,
		Message:  "not configured: " + strings.Join(names, ", "),
		Err:      ErrMissingCredentials,
	}
}

// classify：将 googleapi.Error / 上下文错误 / 传输错误映射为 *Error
// 约束：HTTP 400 仅在明确为 key 无效时视为认证失败
func classify(err error) *Error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		e := &Error{Status: gerr.Code, Message: gerr.Message, Err: err}
		switch {
		case gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden:
			e.Category = CategoryAuthentication
		case gerr.Code == http.StatusBadRequest && isKeyInvalid(gerr):
			e.Category = CategoryAuthentication
		case gerr.Code == http.StatusTooManyRequests:
			e.Category = CategoryRateLimited
		case gerr.Code >= 500:
			e.Category = CategoryOutage
		default:
			e.Category = CategoryBadRequest
		}
		if e.Message == "" {
			e.Message = http.StatusText(gerr.Code)
		}
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Category: CategoryNetwork, Message: "timed out", Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Category: CategoryNetwork, Message: "canceled", Err: err}
	}
	return &Error{Category: CategoryNetwork, Message: "request failed", Err: err}
}

func isKeyInvalid(gerr *googleapi.Error) bool {
	for _, it := range gerr.Errors {
		if it.Reason == "keyInvalid" {
			return true
		}
	}
	return strings.Contains(gerr.Message, "API key not valid") || strings.Contains(gerr.Body, "API_KEY_INVALID")
}
