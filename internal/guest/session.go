// Package guest keeps the state of an anonymous user on their own device:
// an identity, the visions they generated, their points, and a daily
// generation quota. The state can later be moved into a real account.
package guest

import (
	"time"

	"github.com/benvon/civiz/internal/models"
	"github.com/benvon/civiz/internal/points"
	"github.com/google/uuid"
)

// Storage keys
const (
	UserKey       = "civiz-guest-user"
	VisionsKey    = "civiz-guest-visions"
	ConversionKey = "civiz-conversion-context"
)

const (
	// MaxGenerations is how many visions a guest may generate per window
	MaxGenerations = 3
	// Window is the length of the generation quota window
	Window = 24 * time.Hour
)

// Session is a guest identity and its counters
type Session struct {
	ID               uuid.UUID            `json:"id"`
	AnonymousID      string               `json:"anonymous_id"`
	Points           models.PointsAccount `json:"points"`
	GenerationsToday int                  `json:"generations_today"`
	WindowStart      time.Time            `json:"window_start"`
	CreatedAt        time.Time            `json:"created_at"`
}

// Quota is the outcome of a generation check
type Quota struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at,omitempty"`
}

// NewSession creates a fresh guest identity with no points or generations
func NewSession(now time.Time) Session {
	id := uuid.New()
	return Session{
		ID:          id,
		AnonymousID: "anon-" + id.String()[:8],
		WindowStart: now,
		CreatedAt:   now,
	}
}

// windowElapsed reports whether the quota window started more than Window ago
func (s Session) windowElapsed(now time.Time) bool {
	return now.Sub(s.WindowStart) > Window
}

// CanGenerate reports whether s may generate another vision at now. An
// elapsed window counts as a full quota; the counter itself is reset lazily
// by the next RecordGeneration.
func CanGenerate(s Session, now time.Time) Quota {
	if s.windowElapsed(now) {
		return Quota{Allowed: true, Remaining: MaxGenerations}
	}
	remaining := max(0, MaxGenerations-s.GenerationsToday)
	q := Quota{Allowed: remaining > 0, Remaining: remaining}
	if s.GenerationsToday > 0 {
		q.ResetAt = s.WindowStart.Add(Window)
	}
	return q
}

// RecordGeneration counts one generation and credits its submission points.
// The first generation of a new window restarts the window at now.
func RecordGeneration(s Session, now time.Time) Session {
	if s.GenerationsToday == 0 || s.windowElapsed(now) {
		s.GenerationsToday = 0
		s.WindowStart = now
	}
	s.GenerationsToday++
	s.Points = points.OnVisionSubmitted(points.Account{PointsAccount: s.Points}).PointsAccount
	return s
}
