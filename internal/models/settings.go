package models

import (
	"strings"
	"time"
)

// SettingsKey is the row key of the single stored settings record
const SettingsKey = "default"

// CorsConfig holds the origins allowed to call the API. AllowedOrigins is
// stored comma-separated.
type CorsConfig struct {
	ConfigKey        string    `json:"config_key"`
	AllowedOrigins   string    `json:"allowed_origins"`
	AllowCredentials bool      `json:"allow_credentials"`
	MaxAge           int       `json:"max_age"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Origins returns the allowed origins as a list
func (c *CorsConfig) Origins() []string {
	return ParseOrigins(c.AllowedOrigins)
}

// ParseOrigins splits a comma-separated origin list, trimming blanks and
// dropping duplicates while keeping order
func ParseOrigins(raw string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, p := range strings.Split(raw, ",") {
		s := strings.TrimSpace(p)
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// RatelimitConfig holds the API rate (e.g. "5-S", "100-M") and the number of
// image generations an anonymous client gets per window. AnonymousLimit 0
// keeps the configured default.
type RatelimitConfig struct {
	ConfigKey      string    `json:"config_key"`
	Rate           string    `json:"rate"`
	AnonymousLimit int       `json:"anonymous_limit"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
