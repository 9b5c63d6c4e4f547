package models

import (
	"time"

	"github.com/google/uuid"
)

// Vision is a short text describing a change to the city, paired with a
// generated image. Exactly one of an account (OwnerID) or a guest session
// owns it.
type Vision struct {
	ID           uuid.UUID  `json:"id"`
	Text         string     `json:"text"`
	ImageURL     string     `json:"image_url"`
	Prompt       string     `json:"prompt,omitempty"`
	CategoryID   string     `json:"category_id"`
	Likes        int        `json:"likes"`
	Points       int        `json:"points"`
	OwnerID      *uuid.UUID `json:"owner_id,omitempty"`
	HasWatermark bool       `json:"has_watermark"`
	IsAnonymous  bool       `json:"is_anonymous"`
	CreatedAt    time.Time  `json:"created_at"`
}

// VisionView selects which feed is listed
type VisionView string

const (
	VisionViewCommunity VisionView = "community"
	VisionViewPersonal  VisionView = "personal"
)

// IsValid checks if the view is one of the known feeds
func (v VisionView) IsValid() bool {
	return v == VisionViewCommunity || v == VisionViewPersonal
}

// LikeResult is the state of a vision after a like toggle
type LikeResult struct {
	VisionID uuid.UUID     `json:"vision_id"`
	Liked    bool          `json:"liked"`
	Likes    int           `json:"likes"`
	Points   int           `json:"points"`
	Account  PointsAccount `json:"account"`
}
