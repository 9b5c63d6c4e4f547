package middleware

import (
	"context"

	"github.com/benvon/civiz/internal/models"
	"github.com/benvon/civiz/internal/request"
)

// SetUserInContext attaches user to ctx the way Auth does. Handler tests use
// it to simulate an authenticated request.
func SetUserInContext(ctx context.Context, user *models.User) context.Context {
	return request.WithUser(ctx, user)
}
