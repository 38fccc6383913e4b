package types

import (
	"fmt"
	"net/http"
)

// ErrorType - 网关错误分类
type ErrorType string

const (
	ErrorTypeInvalidRequest      ErrorType = "invalid_request_error"
	ErrorTypeUnauthorized        ErrorType = "unauthorized"
	ErrorTypeRateLimited         ErrorType = "rate_limited"
	ErrorTypeNoCredential        ErrorType = "no_credential_available"
	ErrorTypeUpstreamUnavailable ErrorType = "upstream_unavailable"
	ErrorTypeUpstreamTruncated   ErrorType = "upstream_truncated"
	ErrorTypeInternal            ErrorType = "internal_error"
)

// GatewayError - 对客户端可见的网关错误
// 不携带token值和上游堆栈等内部细节
type GatewayError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Status  int       `json:"-"`
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewInvalidRequestError 创建请求格式错误
func NewInvalidRequestError(message string) *GatewayError {
	return &GatewayError{Type: ErrorTypeInvalidRequest, Message: message, Status: http.StatusBadRequest}
}

// NewUnauthorizedError 创建认证失败错误
func NewUnauthorizedError(message string) *GatewayError {
	return &GatewayError{Type: ErrorTypeUnauthorized, Message: message, Status: http.StatusUnauthorized}
}

// NewRateLimitedError 创建限流错误
func NewRateLimitedError(message string) *GatewayError {
	return &GatewayError{Type: ErrorTypeRateLimited, Message: message, Status: http.StatusTooManyRequests}
}

// NewNoCredentialError 创建凭证池耗尽错误
func NewNoCredentialError() *GatewayError {
	return &GatewayError{
		Type:    ErrorTypeNoCredential,
		Message: "No available upstream credentials",
		Status:  http.StatusServiceUnavailable,
	}
}

// NewUpstreamUnavailableError 创建上游不可用错误（可重试）
func NewUpstreamUnavailableError(message string) *GatewayError {
	return &GatewayError{Type: ErrorTypeUpstreamUnavailable, Message: message, Status: http.StatusBadGateway}
}

// NewUpstreamTruncatedError 创建上游流截断错误
func NewUpstreamTruncatedError() *GatewayError {
	return &GatewayError{
		Type:    ErrorTypeUpstreamTruncated,
		Message: "Upstream stream ended before completion",
		Status:  http.StatusBadGateway,
	}
}
