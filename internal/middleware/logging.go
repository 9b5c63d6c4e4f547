package middleware

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	logpkg "github.com/benvon/civiz/internal/logger"
	"github.com/benvon/civiz/internal/request"
	"go.uber.org/zap"
)

// Logging logs one line per request
func Logging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			slot := new(atomic.Pointer[string])

			next.ServeHTTP(wrapped, r.WithContext(context.WithValue(r.Context(), userSlotKey{}, slot)))

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", logpkg.SanitizePath(r.URL.Path)),
				zap.Int("status_code", wrapped.statusCode),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.String("ip", request.ClientIP(r)),
			}
			if id := slot.Load(); id != nil {
				fields = append(fields, zap.String("user_id", *id))
			}
			logger.Info("http_request", fields...)
		})
	}
}

// userSlotKey holds a slot that Auth fills once the account is known.
// Auth runs on subrouters, below the context Logging can see.
type userSlotKey struct{}

func noteUser(ctx context.Context, id string) {
	if slot, ok := ctx.Value(userSlotKey{}).(*atomic.Pointer[string]); ok {
		slot.Store(&id)
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}
