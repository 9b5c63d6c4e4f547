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
	"github.com/lib/pq"
)

// ErrVisionNotFound is returned when no vision matches
var ErrVisionNotFound = errors.New("vision not found")

const visionColumns = `id, owner_id, text, image_url, prompt, category_id, likes, points,
	has_watermark, is_anonymous, created_at`

func scanVision(row rowScanner) (*models.Vision, error) {
	v := &models.Vision{}
	var owner uuid.NullUUID
	err := row.Scan(
		&v.ID,
		&owner,
		&v.Text,
		&v.ImageURL,
		&v.Prompt,
		&v.CategoryID,
		&v.Likes,
		&v.Points,
		&v.HasWatermark,
		&v.IsAnonymous,
		&v.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVisionNotFound
	}
	if err != nil {
		return nil, err
	}
	if owner.Valid {
		id := owner.UUID
		v.OwnerID = &id
	}
	return v, nil
}

// VisionRepository handles vision database operations
type VisionRepository struct {
	db *DB
}

// NewVisionRepository creates a new vision repository
func NewVisionRepository(db *DB) *VisionRepository {
	return &VisionRepository{db: db}
}

func insertVision(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, v *models.Vision) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	err := q.QueryRowContext(ctx, `
		INSERT INTO visions (id, owner_id, text, image_url, prompt, category_id, likes, points,
			has_watermark, is_anonymous, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`,
		v.ID,
		v.OwnerID,
		v.Text,
		v.ImageURL,
		v.Prompt,
		v.CategoryID,
		v.Likes,
		v.Points,
		v.HasWatermark,
		v.IsAnonymous,
		v.CreatedAt,
	).Scan(&v.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create vision: %w", err)
	}
	return nil
}

// Create stores a vision as is
func (r *VisionRepository) Create(ctx context.Context, v *models.Vision) error {
	return insertVision(ctx, r.db, v)
}

// CreateWithSubmission stores an owned vision seeded with its owner's
// submitter bonus and credits the submission, in one transaction.
func (r *VisionRepository) CreateWithSubmission(ctx context.Context, v *models.Vision) (models.PointsAccount, error) {
	if v.OwnerID == nil {
		return models.PointsAccount{}, fmt.Errorf("vision has no owner")
	}
	var out models.PointsAccount
	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		a, err := lockPoints(ctx, tx, *v.OwnerID)
		if err != nil {
			return err
		}
		a, v.Points = points.SubmitVision(a)
		if err := insertVision(ctx, tx, v); err != nil {
			return err
		}
		out = a.PointsAccount
		return storePoints(ctx, tx, *v.OwnerID, a)
	})
	return out, err
}

// GetByID retrieves a vision by ID
func (r *VisionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Vision, error) {
	v, err := scanVision(r.db.QueryRowContext(ctx, `SELECT `+visionColumns+` FROM visions WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get vision: %w", err)
	}
	return v, nil
}

func (r *VisionRepository) list(ctx context.Context, query string, args ...any) ([]*models.Vision, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query visions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.Vision
	for rows.Next() {
		v, err := scanVision(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vision: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating visions: %w", err)
	}
	return out, nil
}

// ListCommunity returns one page of all visions, highest points first. Ties
// are broken by likes and then by recency.
func (r *VisionRepository) ListCommunity(ctx context.Context, page, pageSize int) ([]*models.Vision, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM visions`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count visions: %w", err)
	}

	visions, err := r.list(ctx, `
		SELECT `+visionColumns+` FROM visions
		ORDER BY points DESC, likes DESC, created_at DESC
		LIMIT $1 OFFSET $2
	`, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	return visions, total, nil
}

// ListByOwner returns a user's visions, newest first
func (r *VisionRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Vision, error) {
	return r.list(ctx, `
		SELECT `+visionColumns+` FROM visions
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, ownerID)
}

// LikedBy returns the ids among visionIDs that userID currently likes
func (r *VisionRepository) LikedBy(ctx context.Context, userID uuid.UUID, visionIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool, len(visionIDs))
	if len(visionIDs) == 0 {
		return out, nil
	}
	ids := make([]string, len(visionIDs))
	for i, id := range visionIDs {
		ids[i] = id.String()
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT vision_id FROM vision_likes
		WHERE user_id = $1 AND vision_id = ANY($2::uuid[])
	`, userID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query likes: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan like: %w", err)
		}
		out[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating likes: %w", err)
	}
	return out, nil
}

// ToggleLike likes the vision for userID, or removes the like if it is
// already present. The user's balance and the vision's tally change in one
// transaction; an unlike removes exactly the contribution its like added.
func (r *VisionRepository) ToggleLike(ctx context.Context, userID, visionID uuid.UUID) (*models.LikeResult, error) {
	var result *models.LikeResult
	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		account, err := lockPoints(ctx, tx, userID)
		if err != nil {
			return err
		}

		tally := points.VisionTally{}
		err = tx.QueryRowContext(ctx, `
			SELECT likes, points FROM visions WHERE id = $1 FOR UPDATE
		`, visionID).Scan(&tally.Likes, &tally.Points)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrVisionNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock vision: %w", err)
		}

		uid, vid := userID.String(), visionID.String()
		var contribution int
		err = tx.QueryRowContext(ctx, `
			SELECT contribution FROM vision_likes WHERE vision_id = $1 AND user_id = $2
		`, visionID, userID).Scan(&contribution)
		switch {
		case err == nil:
			account.LikedVisions = []string{vid}
			tally.LikedBy = map[string]int{uid: contribution}
		case errors.Is(err, sql.ErrNoRows):
		default:
			return fmt.Errorf("failed to load like: %w", err)
		}

		liked := !account.Likes(vid)
		if liked {
			account, tally = points.Like(account, tally, uid, vid)
			_, err = tx.ExecContext(ctx, `
				INSERT INTO vision_likes (vision_id, user_id, contribution, created_at)
				VALUES ($1, $2, $3, $4)
			`, visionID, userID, tally.LikedBy[uid], time.Now())
		} else {
			account, tally = points.Unlike(account, tally, uid, vid)
			_, err = tx.ExecContext(ctx, `
				DELETE FROM vision_likes WHERE vision_id = $1 AND user_id = $2
			`, visionID, userID)
		}
		if err != nil {
			return fmt.Errorf("failed to write like: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE visions SET likes = $2, points = $3 WHERE id = $1
		`, visionID, tally.Likes, tally.Points); err != nil {
			return fmt.Errorf("failed to update vision tally: %w", err)
		}
		if err := storePoints(ctx, tx, userID, account); err != nil {
			return err
		}

		result = &models.LikeResult{
			VisionID: visionID,
			Liked:    liked,
			Likes:    tally.Likes,
			Points:   tally.Points,
			Account:  account.PointsAccount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
