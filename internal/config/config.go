// Package config reads server settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Anonymous limiter store kinds
const (
	AnonStoreMemory = "memory"
	AnonStoreRedis  = "redis"
)

// Config holds application configuration
type Config struct {
	DatabaseURL     string
	ServerPort      string
	BaseURL         string
	FrontendURL     string
	EnableHSTS      bool
	ServerDebugMode bool
	RequestTimeout  time.Duration

	OIDCProvider string
	RedisURL     string

	OpenAIKey           string
	ImageProvider       string
	AIBaseURL           string
	ImageModel          string
	ImageSize           string
	ImageTimeoutSeconds int

	CategoriesFile string

	AnonLimitStore      string
	AnonGenerationLimit int
	APIRateLimit        string

	MetricsEnabled bool
	OTELEnabled    bool
	OTELEndpoint   string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	e := env(getenv)
	cfg := &Config{
		DatabaseURL:     e.str("DATABASE_URL", ""),
		ServerPort:      e.str("SERVER_PORT", "8080"),
		BaseURL:         e.str("BASE_URL", "http://localhost:8080"),
		FrontendURL:     e.str("FRONTEND_URL", "http://localhost:3000"),
		EnableHSTS:      e.boolean("ENABLE_HSTS", false),
		ServerDebugMode: e.boolean("SERVER_DEBUG_MODE", false),
		RequestTimeout:  time.Duration(e.integer("REQUEST_TIMEOUT_SECONDS", 60)) * time.Second,

		OIDCProvider: e.str("OIDC_PROVIDER", "cognito"),
		RedisURL:     e.str("REDIS_URL", ""),

		OpenAIKey:           e.str("OPENAI_API_KEY", ""),
		ImageProvider:       e.str("IMAGE_PROVIDER", "openai"),
		AIBaseURL:           e.str("AI_BASE_URL", ""),
		ImageModel:          e.str("IMAGE_MODEL", "dall-e-3"),
		ImageSize:           e.str("IMAGE_SIZE", "1024x1024"),
		ImageTimeoutSeconds: e.integer("IMAGE_TIMEOUT_SECONDS", 30),

		CategoriesFile: e.str("CATEGORIES_FILE", ""),

		AnonLimitStore:      strings.ToLower(e.str("ANON_LIMIT_STORE", AnonStoreMemory)),
		AnonGenerationLimit: e.integer("ANON_GENERATION_LIMIT", 3),
		APIRateLimit:        e.str("API_RATE_LIMIT", "5-S"),

		MetricsEnabled: e.boolean("METRICS_ENABLED", true),
		OTELEnabled:    e.boolean("OTEL_ENABLED", false),
		OTELEndpoint:   e.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	switch cfg.AnonLimitStore {
	case AnonStoreMemory:
	case AnonStoreRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required when ANON_LIMIT_STORE=redis")
		}
	default:
		return nil, fmt.Errorf("invalid ANON_LIMIT_STORE %q (must be memory or redis)", cfg.AnonLimitStore)
	}
	if cfg.AnonGenerationLimit <= 0 {
		return nil, fmt.Errorf("ANON_GENERATION_LIMIT must be positive")
	}
	if cfg.ImageTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("IMAGE_TIMEOUT_SECONDS must be positive")
	}

	return cfg, nil
}

// ImageProviderConfig returns the settings passed to the image provider registry
func (c *Config) ImageProviderConfig() map[string]string {
	return map[string]string{
		"api_key":         c.OpenAIKey,
		"base_url":        c.AIBaseURL,
		"model":           c.ImageModel,
		"size":            c.ImageSize,
		"timeout_seconds": strconv.Itoa(c.ImageTimeoutSeconds),
	}
}

type env func(string) string

func (e env) str(key, defaultValue string) string {
	if value := e(key); value != "" {
		return value
	}
	return defaultValue
}

func (e env) boolean(key string, defaultValue bool) bool {
	if value := e(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func (e env) integer(key string, defaultValue int) int {
	if value := e(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
