package guest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/civiz/internal/conversion"
	"github.com/benvon/civiz/internal/models"
	"github.com/benvon/civiz/internal/points"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store reads and writes guest state through a Storage
type Store struct {
	storage Storage
	now     func() time.Time
	logger  *zap.Logger
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a Store over storage
func NewStore(storage Storage, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session returns the stored session, if any
func (s *Store) Session() (Session, bool, error) {
	var sess Session
	ok, err := s.load(UserKey, &sess)
	return sess, ok, err
}

// EnsureSession returns the stored session, creating one on first use
func (s *Store) EnsureSession() (Session, error) {
	sess, ok, err := s.Session()
	if err != nil {
		return Session{}, err
	}
	if ok {
		return sess, nil
	}
	sess = NewSession(s.now())
	if err := s.save(UserKey, sess); err != nil {
		return Session{}, err
	}
	s.logger.Debug("guest_session_created", zap.String("anonymous_id", sess.AnonymousID))
	return sess, nil
}

// CanGenerate checks the local generation quota. A guest without a session
// has the full quota.
func (s *Store) CanGenerate() (Quota, error) {
	sess, ok, err := s.Session()
	if err != nil {
		return Quota{}, err
	}
	if !ok {
		return Quota{Allowed: true, Remaining: MaxGenerations}, nil
	}
	return CanGenerate(sess, s.now()), nil
}

// RecordGeneration counts a generation against the stored session
func (s *Store) RecordGeneration() (Session, error) {
	sess, err := s.EnsureSession()
	if err != nil {
		return Session{}, err
	}
	sess = RecordGeneration(sess, s.now())
	if err := s.save(UserKey, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Visions returns the guest's visions, newest first
func (s *Store) Visions() ([]models.Vision, error) {
	var visions []models.Vision
	if _, err := s.load(VisionsKey, &visions); err != nil {
		return nil, err
	}
	return visions, nil
}

// AddVision stores v at the front of the guest's visions. Guest visions are
// always anonymous, watermarked and unowned.
func (s *Store) AddVision(v models.Vision) (models.Vision, error) {
	visions, err := s.Visions()
	if err != nil {
		return models.Vision{}, err
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = s.now()
	}
	v.OwnerID = nil
	v.IsAnonymous = true
	v.HasWatermark = true

	visions = append([]models.Vision{v}, visions...)
	if err := s.save(VisionsKey, visions); err != nil {
		return models.Vision{}, err
	}
	return v, nil
}

// RecordVision records a generation and stores the vision it produced
func (s *Store) RecordVision(v models.Vision) (models.Vision, Session, error) {
	sess, err := s.RecordGeneration()
	if err != nil {
		return models.Vision{}, Session{}, err
	}
	v, err = s.AddVision(v)
	if err != nil {
		return models.Vision{}, Session{}, err
	}
	return v, sess, nil
}

// SetConversionContext remembers the interaction that triggered a sign-up
// prompt
func (s *Store) SetConversionContext(c conversion.Context) error {
	return s.save(ConversionKey, c)
}

// ConversionContext returns the stored conversion context, if any
func (s *Store) ConversionContext() (conversion.Context, bool, error) {
	var c conversion.Context
	ok, err := s.load(ConversionKey, &c)
	return c, ok, err
}

// ClearConversionContext forgets the conversion context
func (s *Store) ClearConversionContext() error {
	return s.storage.Clear(ConversionKey)
}

// Reset removes all guest state
func (s *Store) Reset() error {
	if err := s.storage.Clear(UserKey, VisionsKey, ConversionKey); err != nil {
		return fmt.Errorf("failed to clear guest data: %w", err)
	}
	return nil
}

// Snapshot is everything a guest owns, as sent for migration
type Snapshot struct {
	Session *Session        `json:"guest_user,omitempty"`
	Visions []models.Vision `json:"visions"`
}

// ErrUnearnedPoints marks a snapshot whose points a guest could not have earned
var ErrUnearnedPoints = errors.New("guest points exceed what guest visions earn")

// CheckPoints rejects guest points that are inconsistent or unearned. Guests
// earn points only by generating visions, VisionSubmission per vision.
func (s Snapshot) CheckPoints() error {
	if s.Session == nil {
		return nil
	}
	p := s.Session.Points
	if !p.Consistent() {
		return fmt.Errorf("%w: components do not sum to the total", ErrUnearnedPoints)
	}
	if p.PointsFromLikes != 0 || p.PointsFromFunding != 0 {
		return fmt.Errorf("%w: only vision points can be migrated", ErrUnearnedPoints)
	}
	if p.PointsFromVisions > points.VisionSubmission*len(s.Visions) {
		return fmt.Errorf("%w: %d points for %d visions", ErrUnearnedPoints, p.PointsFromVisions, len(s.Visions))
	}
	return nil
}

// Empty reports whether there is nothing to migrate
func (s Snapshot) Empty() bool {
	return len(s.Visions) == 0 && (s.Session == nil || s.Session.Points.TotalPoints == 0)
}

// Snapshot reads the guest state for migration
func (s *Store) Snapshot() (Snapshot, error) {
	var snap Snapshot
	sess, ok, err := s.Session()
	if err != nil {
		return Snapshot{}, err
	}
	if ok {
		snap.Session = &sess
	}
	if snap.Visions, err = s.Visions(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Migrator moves a guest snapshot into an account
type Migrator interface {
	MigrateGuest(ctx context.Context, snap Snapshot) (MigrationResult, error)
}

// Migrate hands the guest state to m and clears it once m succeeds. It is
// never retried here: on error the guest data is left in place and the
// caller decides whether to call again.
func (s *Store) Migrate(ctx context.Context, m Migrator) (MigrationResult, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return MigrationResult{}, err
	}

	result, err := m.MigrateGuest(ctx, snap)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("failed to migrate guest data: %w", err)
	}

	if err := s.Reset(); err != nil {
		return result, err
	}
	s.logger.Info("guest_data_migrated",
		zap.Int("migrated_visions", result.MigratedCount),
		zap.Int("points_added", result.PointsAdded),
	)
	return result, nil
}

func (s *Store) load(key string, v any) (bool, error) {
	data, err := s.storage.Get(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read guest data: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		// unreadable local state is treated as absent, like a fresh device
		s.logger.Warn("guest_data_unreadable", zap.String("key", key), zap.Error(err))
		return false, nil
	}
	return true, nil
}

func (s *Store) save(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode guest data: %w", err)
	}
	if err := s.storage.Set(key, data); err != nil {
		return fmt.Errorf("failed to write guest data: %w", err)
	}
	return nil
}
