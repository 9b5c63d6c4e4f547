package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/civiz/internal/models"
	"github.com/benvon/civiz/internal/points"
	"github.com/google/uuid"
)

// ErrUserNotFound is returned when no user matches
var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, email, provider_id, name, email_verified,
	total_points, points_from_visions, points_from_likes, points_from_funding,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.ProviderID,
		&u.Name,
		&u.EmailVerified,
		&u.Points.TotalPoints,
		&u.Points.PointsFromVisions,
		&u.Points.PointsFromLikes,
		&u.Points.PointsFromFunding,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// UserRepository handles user database operations
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user with an empty points balance
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	query := `
		INSERT INTO users (id, email, provider_id, name, email_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.Email,
		user.ProviderID,
		user.Name,
		user.EmailVerified,
		now,
		now,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.Points = models.PointsAccount{}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetByProviderID retrieves a user by the identity provider's subject
func (r *UserRepository) GetByProviderID(ctx context.Context, providerID string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE provider_id = $1`, providerID))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by provider ID: %w", err)
	}
	return u, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

// GetOrCreate finds the user for an identity, creating one on first login.
// An existing row with the same email is linked to the provider subject.
func (r *UserRepository) GetOrCreate(ctx context.Context, providerID, email string, name *string, emailVerified bool) (*models.User, error) {
	u, err := r.GetByProviderID(ctx, providerID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	if email != "" {
		u, err = r.GetByEmail(ctx, email)
		if err == nil {
			pid := providerID
			u.ProviderID = &pid
			if err := r.Update(ctx, u); err != nil {
				return nil, err
			}
			return u, nil
		}
		if !errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
	}

	pid := providerID
	u = &models.User{
		ID:            uuid.New(),
		Email:         email,
		ProviderID:    &pid,
		Name:          name,
		EmailVerified: emailVerified,
	}
	if err := r.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Update updates profile fields. Points are only changed through the
// ledger methods.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET email = $2, provider_id = $3, name = $4, email_verified = $5, updated_at = $6
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.Email,
		user.ProviderID,
		user.Name,
		user.EmailVerified,
		time.Now(),
	).Scan(&user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// GetProfile returns the user with their vision and like counts
func (r *UserRepository) GetProfile(ctx context.Context, id uuid.UUID) (*models.UserProfile, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p := &models.UserProfile{User: *u}
	err = r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM visions WHERE owner_id = $1),
			(SELECT COUNT(*) FROM vision_likes WHERE user_id = $1)
	`, id).Scan(&p.VisionCount, &p.LikesGiven)
	if err != nil {
		return nil, fmt.Errorf("failed to count user activity: %w", err)
	}
	return p, nil
}

// lockPoints loads a user's balance and liked set inside tx, locking the row
func lockPoints(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (points.Account, error) {
	var a points.Account
	err := tx.QueryRowContext(ctx, `
		SELECT total_points, points_from_visions, points_from_likes, points_from_funding
		FROM users WHERE id = $1
		FOR UPDATE
	`, userID).Scan(
		&a.TotalPoints,
		&a.PointsFromVisions,
		&a.PointsFromLikes,
		&a.PointsFromFunding,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrUserNotFound
	}
	if err != nil {
		return a, fmt.Errorf("failed to lock user points: %w", err)
	}
	return a, nil
}

// storePoints writes a balance computed by the ledger
func storePoints(ctx context.Context, tx *sql.Tx, userID uuid.UUID, a points.Account) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE users
		SET total_points = $2, points_from_visions = $3, points_from_likes = $4,
			points_from_funding = $5, updated_at = $6
		WHERE id = $1
	`, userID, a.TotalPoints, a.PointsFromVisions, a.PointsFromLikes, a.PointsFromFunding, time.Now())
	if err != nil {
		return fmt.Errorf("failed to store user points: %w", err)
	}
	return nil
}

// IncrementPoints adds delta to a user's balance, source by source
func (r *UserRepository) IncrementPoints(ctx context.Context, userID uuid.UUID, delta models.PointsAccount) (models.PointsAccount, error) {
	var out models.PointsAccount
	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		a, err := lockPoints(ctx, tx, userID)
		if err != nil {
			return err
		}
		a = points.Merge(a, delta)
		out = a.PointsAccount
		return storePoints(ctx, tx, userID, a)
	})
	return out, err
}

// CreditFunding records a funded amount and credits its points
func (r *UserRepository) CreditFunding(ctx context.Context, userID uuid.UUID, amount int) (models.PointsAccount, error) {
	if amount <= 0 {
		return models.PointsAccount{}, fmt.Errorf("funding amount must be positive, got %d", amount)
	}
	var out models.PointsAccount
	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		a, err := lockPoints(ctx, tx, userID)
		if err != nil {
			return err
		}
		a = points.CreditFunding(a, amount)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO fundings (id, user_id, amount, points, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, uuid.New(), userID, amount, points.OnFunding(amount), time.Now()); err != nil {
			return fmt.Errorf("failed to record funding: %w", err)
		}
		out = a.PointsAccount
		return storePoints(ctx, tx, userID, a)
	})
	return out, err
}
