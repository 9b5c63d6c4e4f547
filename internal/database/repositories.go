package database

import (
	"context"

	"github.com/benvon/civiz/internal/guest"
	"github.com/benvon/civiz/internal/models"
	"github.com/google/uuid"
)

// UserRepositoryInterface defines the user operations the handlers need.
// It lets handler tests run against fakes.
type UserRepositoryInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetOrCreate(ctx context.Context, providerID, email string, name *string, emailVerified bool) (*models.User, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*models.UserProfile, error)
	CreditFunding(ctx context.Context, userID uuid.UUID, amount int) (models.PointsAccount, error)
}

// VisionRepositoryInterface defines the vision operations the handlers need
type VisionRepositoryInterface interface {
	Create(ctx context.Context, v *models.Vision) error
	CreateWithSubmission(ctx context.Context, v *models.Vision) (models.PointsAccount, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Vision, error)
	ListCommunity(ctx context.Context, page, pageSize int) ([]*models.Vision, int, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Vision, error)
	LikedBy(ctx context.Context, userID uuid.UUID, visionIDs []uuid.UUID) (map[uuid.UUID]bool, error)
	ToggleLike(ctx context.Context, userID, visionID uuid.UUID) (*models.LikeResult, error)
}

// Ensure concrete types implement the interfaces
var (
	_ UserRepositoryInterface   = (*UserRepository)(nil)
	_ VisionRepositoryInterface = (*VisionRepository)(nil)
	_ guest.AccountStore        = (*AccountStore)(nil)
)
