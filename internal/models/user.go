package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account holder
type User struct {
	ID            uuid.UUID     `json:"id"`
	Email         string        `json:"email"`
	ProviderID    *string       `json:"provider_id,omitempty"`
	Name          *string       `json:"name,omitempty"`
	EmailVerified bool          `json:"email_verified"`
	Points        PointsAccount `json:"points"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// UserProfile is a user together with their activity counts
type UserProfile struct {
	User
	VisionCount int `json:"vision_count"`
	LikesGiven  int `json:"likes_given"`
}
