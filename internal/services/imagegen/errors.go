package imagegen

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
)

var (
	// ErrNoImage is returned when the provider answers without an image
	ErrNoImage = errors.New("no image in response")
	// ErrNoGenerator means image generation is not configured
	ErrNoGenerator = errors.New("no image generator configured")
)

// APIError represents an error from the image provider API
type APIError struct {
	Message    string
	Type       string
	Code       string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
}

// IsRateLimitError checks if an error is a provider rate limit
func IsRateLimitError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests && apiErr.Code != "insufficient_quota"
	}
	return false
}

// IsQuotaError checks if an error is quota exhaustion
func IsQuotaError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == "insufficient_quota" || apiErr.Code == "billing_hard_limit_reached"
	}
	return false
}

// IsContentPolicyError checks if the prompt was refused by the provider's
// safety system
func IsContentPolicyError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == "content_policy_violation"
	}
	return false
}

// ExtractAPIError converts an SDK error into an APIError, or returns nil
func ExtractAPIError(err error) *APIError {
	var oaiErr *openai.Error
	if !errors.As(err, &oaiErr) {
		return nil
	}
	return &APIError{
		Message:    oaiErr.Message,
		Type:       oaiErr.Type,
		Code:       oaiErr.Code,
		StatusCode: oaiErr.StatusCode,
	}
}

// reason is a short label for logs and metrics
func reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoGenerator):
		return "not_configured"
	case IsQuotaError(err):
		return "quota"
	case IsRateLimitError(err):
		return "rate_limited"
	case IsContentPolicyError(err):
		return "content_policy"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
