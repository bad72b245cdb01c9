package domain

import "errors"

// 错误分类：repository/service 使用 fmt.Errorf("...: %w", ErrXxx) 包装，
// HTTP 层通过 errors.Is 映射状态码（404/400/409/409/500/403）
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidState        = errors.New("invalid state")
	ErrNoBedsAvailable     = errors.New("no beds available")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrForbidden           = errors.New("forbidden")
)
