package dispatch

import (
	"errors"
	"turnout/internal/search"
)

// ErrNoInput：地点或选举类型为空，未发起任何网络请求
var ErrNoInput = errors.New("no input")

// UserMessage：把任意错误转换为可直接展示给用户的文案
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrNoInput) {
		return "Please enter both the location and the type of election."
	}
	var se *search.Error
	if !errors.As(err, &se) && !errors.Is(err, search.ErrMissingCredentials) {
		return "Something went wrong while fetching voter turnout data."
	}
	switch search.CategoryOf(err) {
	case search.CategoryMissingCredentials:
		return "The search service is not configured: API credentials are missing."
	case search.CategoryAuthentication:
		return "The search service rejected the configured credentials."
	case search.CategoryRateLimited:
		return "The search quota has been exhausted. Please try again later."
	case search.CategoryOutage:
		return "The search service is temporarily unavailable. Please try again later."
	case search.CategoryBadRequest:
		return "The search service could not process this query."
	}
	return "Could not reach the search service."
}
