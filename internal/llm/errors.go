package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gobreaker "github.com/sony/gobreaker/v2"
)

// ErrorType says which part of the provider setup an error points at.
type ErrorType string

const (
	ErrorTypeEndpoint    ErrorType = "endpoint"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeModel       ErrorType = "model"
	ErrorTypeUnavailable ErrorType = "unavailable"
	ErrorTypeResponse    ErrorType = "response"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error is a classified provider error.
type Error struct {
	Type       ErrorType
	Message    string
	Retryable  bool
	Cause      error
	StatusCode int
}

func (e *Error) Error() string {
	parts := []string{string(e.Type)}
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	parts = append(parts, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(t ErrorType, msg string, retryable bool, cause error, status int) *Error {
	return &Error{Type: t, Message: msg, Retryable: retryable, Cause: cause, StatusCode: status}
}

// ClassifyError turns a provider, transport or breaker error into an *Error.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return newError(ErrorTypeUnavailable, "provider circuit open", true, err, 0)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return newError(ErrorTypeEndpoint, "request timeout", true, err, 0)
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	status := 0
	for _, code := range []int{400, 401, 403, 404, 429, 500, 502, 503, 504} {
		if strings.Contains(msg, fmt.Sprintf("%d", code)) {
			status = code
			break
		}
	}

	switch {
	case status == 401 || strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key"):
		return newError(ErrorTypeAuth, "authentication failed", false, err, status)
	case strings.Contains(lower, "model") && (strings.Contains(lower, "not found") || strings.Contains(lower, "does not exist")):
		return newError(ErrorTypeModel, "model not found", false, err, status)
	case status == 404:
		return newError(ErrorTypeEndpoint, "endpoint not found", false, err, status)
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host"):
		return newError(ErrorTypeEndpoint, "connection failed", true, err, status)
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		return newError(ErrorTypeEndpoint, "request timeout", true, err, status)
	case status == 429 || strings.Contains(lower, "rate limit"):
		return newError(ErrorTypeUnknown, "rate limited", true, err, status)
	case status >= 500:
		return newError(ErrorTypeEndpoint, "server error", true, err, status)
	}
	return newError(ErrorTypeUnknown, "llm error", false, err, status)
}

// IsRetryable reports whether err is a classified error worth retrying.
func IsRetryable(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	return false
}

// GetErrorType returns the ErrorType of err, or ErrorTypeUnknown.
func GetErrorType(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}
