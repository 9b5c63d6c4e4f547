package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	logpkg "github.com/benvon/civiz/internal/logger"
	"github.com/benvon/civiz/internal/models"
	"github.com/benvon/civiz/internal/request"
	"go.uber.org/zap"
)

// TokenVerifier checks a bearer token
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*models.JWTClaims, error)
}

// UserResolver maps verified claims to an account, creating it on first use
type UserResolver interface {
	GetOrCreate(ctx context.Context, providerID, email string, name *string, emailVerified bool) (*models.User, error)
}

// UserFromContext extracts the user from the request context
func UserFromContext(r *http.Request) *models.User {
	return request.UserFromContext(r)
}

// Auth rejects requests without a valid bearer token and attaches the
// account to the request context.
func Auth(verifier TokenVerifier, users UserResolver, logger *zap.Logger) func(http.Handler) http.Handler {
	return authenticate(verifier, users, logger, true)
}

// OptionalAuth attaches the account when a valid bearer token is present.
// Requests without a token, or with an invalid one, continue as guests.
func OptionalAuth(verifier TokenVerifier, users UserResolver, logger *zap.Logger) func(http.Handler) http.Handler {
	return authenticate(verifier, users, logger, false)
}

func authenticate(verifier TokenVerifier, users UserResolver, logger *zap.Logger, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				if required {
					respondError(w, http.StatusUnauthorized, "Missing or invalid Authorization header", logger)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			claims, err := verifier.VerifyToken(ctx, token)
			if err != nil {
				logger.Info("token_verification_failed",
					zap.String("path", logpkg.SanitizePath(r.URL.Path)),
					zap.String("error", logpkg.SanitizeError(err)),
				)
				if required {
					respondError(w, http.StatusUnauthorized, "Invalid or expired token", logger)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			var name *string
			if claims.Name != "" {
				n := claims.Name
				name = &n
			}
			user, err := users.GetOrCreate(ctx, claims.Sub, claims.Email, name, claims.EmailVerified)
			if err != nil {
				logger.Error("failed_to_resolve_user",
					zap.String("provider_id", logpkg.SanitizeUserID(claims.Sub)),
					zap.Error(err),
				)
				respondError(w, http.StatusInternalServerError, "Failed to load user", logger)
				return
			}

			noteUser(ctx, user.ID.String())
			next.ServeHTTP(w, r.WithContext(request.WithUser(ctx, user)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func respondError(w http.ResponseWriter, status int, message string, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   false,
		"error":     http.StatusText(status),
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("failed_to_encode_error_response", zap.Error(err))
	}
}
