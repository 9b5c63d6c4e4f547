package middleware

import (
	"net/http"
	"strings"

	logpkg "github.com/benvon/civiz/internal/logger"
	"github.com/benvon/civiz/internal/request"
	"go.uber.org/zap"
)

// anonymousGenerationPath answers 429 when a visitor's free generations run out
const anonymousGenerationPath = "/api/v1/visions/anonymous"

// Audit logs rejected authentication, oversized bodies and rate limited
// requests. An exhausted anonymous quota is an expected outcome and is
// logged at info.
func Audit(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			fields := func() []zap.Field {
				return []zap.Field{
					zap.String("method", r.Method),
					zap.String("path", logpkg.SanitizePath(r.URL.Path)),
					zap.String("ip", logpkg.SanitizeString(request.ClientIP(r), logpkg.MaxGeneralStringLength)),
				}
			}
			switch status := wrapped.statusCode; {
			case status == http.StatusUnauthorized, status == http.StatusForbidden:
				logger.Warn("security_event", append(fields(), zap.Int("status_code", status))...)
			case status == http.StatusRequestEntityTooLarge:
				logger.Warn("oversized_request", fields()...)
			case status == http.StatusTooManyRequests && strings.HasSuffix(r.URL.Path, anonymousGenerationPath):
				logger.Info("anonymous_quota_exhausted", fields()...)
			case status == http.StatusTooManyRequests:
				logger.Warn("rate_limit_violation", fields()...)
			}
		})
	}
}
