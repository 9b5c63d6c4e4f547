package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// OIDCConfig is a stored identity provider. Domain is the hosted login
// domain some providers (Cognito) serve their OAuth2 endpoints from.
// ClientSecret is nil for public clients.
type OIDCConfig struct {
	ID           uuid.UUID `json:"id"`
	Provider     string    `json:"provider"`
	Issuer       string    `json:"issuer"`
	Domain       *string   `json:"domain,omitempty"`
	ClientID     string    `json:"client_id"`
	ClientSecret *string   `json:"client_secret,omitempty"`
	RedirectURI  string    `json:"redirect_uri"`
	JWKSUrl      *string   `json:"jwks_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// KeySetURL returns the configured JWKS URL, or the issuer's well-known one
func (c *OIDCConfig) KeySetURL() string {
	if c.JWKSUrl != nil && *c.JWKSUrl != "" {
		return *c.JWKSUrl
	}
	return strings.TrimSuffix(c.Issuer, "/") + "/.well-known/jwks.json"
}
