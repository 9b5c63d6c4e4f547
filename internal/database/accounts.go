package database

import (
	"context"
	"errors"

	"github.com/benvon/civiz/internal/models"
	"github.com/google/uuid"
)

// AccountStore adapts the user and vision repositories to the guest
// migration's account store.
type AccountStore struct {
	Users   *UserRepository
	Visions *VisionRepository
}

// FindAccount returns nil without an error when the account does not exist
func (s *AccountStore) FindAccount(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := s.Users.GetByID(ctx, id)
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil
	}
	return u, err
}

// CreateVision stores a migrated vision without crediting submission points;
// the guest's points are credited separately.
func (s *AccountStore) CreateVision(ctx context.Context, v *models.Vision) error {
	return s.Visions.Create(ctx, v)
}

// IncrementAccountPoints adds the guest's balance to the account
func (s *AccountStore) IncrementAccountPoints(ctx context.Context, id uuid.UUID, delta models.PointsAccount) error {
	_, err := s.Users.IncrementPoints(ctx, id, delta)
	return err
}
