package guest

import (
	"context"
	"errors"
	"fmt"

	"github.com/benvon/civiz/internal/models"
	"github.com/benvon/civiz/internal/points"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrAccountNotFound is returned when the migration target does not exist
var ErrAccountNotFound = errors.New("target account not found")

// AccountStore is the durable side of a migration
type AccountStore interface {
	FindAccount(ctx context.Context, id uuid.UUID) (*models.User, error)
	CreateVision(ctx context.Context, v *models.Vision) error
	IncrementAccountPoints(ctx context.Context, accountID uuid.UUID, delta models.PointsAccount) error
}

// MigrationResult reports what a migration moved
type MigrationResult struct {
	MigratedCount int             `json:"migrated_visions_count"`
	FailedCount   int             `json:"failed_visions_count"`
	PointsAdded   int             `json:"points_added"`
	Visions       []models.Vision `json:"visions"`
}

// AccountMigrator moves guest snapshots into one account
type AccountMigrator struct {
	Accounts  AccountStore
	AccountID uuid.UUID
	Logger    *zap.Logger
}

// MigrateGuest creates each guest vision under the account and then credits
// the guest's points. A vision that fails to save is logged and skipped;
// only a missing account or a failed points credit fails the call. Visions
// keep their guest ids, so a repeated call cannot create duplicates.
func (m *AccountMigrator) MigrateGuest(ctx context.Context, snap Snapshot) (MigrationResult, error) {
	logger := m.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	account, err := m.Accounts.FindAccount(ctx, m.AccountID)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return MigrationResult{}, ErrAccountNotFound
	}

	result := MigrationResult{Visions: make([]models.Vision, 0, len(snap.Visions))}
	owner := account.ID
	for _, gv := range snap.Visions {
		v := gv
		if v.ID == uuid.Nil {
			v.ID = uuid.New()
		}
		v.OwnerID = &owner
		v.IsAnonymous = false
		v.HasWatermark = false
		v.Likes = 0
		v.Points = 0

		if err := m.Accounts.CreateVision(ctx, &v); err != nil {
			result.FailedCount++
			logger.Warn("guest_vision_migration_failed",
				zap.String("vision_id", v.ID.String()),
				zap.String("user_id", owner.String()),
				zap.Error(err),
			)
			continue
		}
		result.MigratedCount++
		result.Visions = append(result.Visions, v)
	}

	if snap.Session != nil && snap.Session.Points.TotalPoints > 0 {
		if err := m.Accounts.IncrementAccountPoints(ctx, owner, snap.Session.Points); err != nil {
			return result, fmt.Errorf("failed to credit guest points: %w", err)
		}
		result.PointsAdded = points.Merge(points.Account{}, snap.Session.Points).TotalPoints
	}

	logger.Info("guest_migration_completed",
		zap.String("user_id", owner.String()),
		zap.Int("migrated_visions", result.MigratedCount),
		zap.Int("failed_visions", result.FailedCount),
		zap.Int("points_added", result.PointsAdded),
	)
	return result, nil
}
