package database

import (
	"context"
	"fmt"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	provider_id TEXT UNIQUE,
	name TEXT,
	email_verified BOOLEAN NOT NULL DEFAULT FALSE,
	total_points INTEGER NOT NULL DEFAULT 0,
	points_from_visions INTEGER NOT NULL DEFAULT 0,
	points_from_likes INTEGER NOT NULL DEFAULT 0,
	points_from_funding INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT users_points_consistent CHECK (
		total_points = points_from_visions + points_from_likes + points_from_funding
	)
);

CREATE TABLE IF NOT EXISTS visions (
	id UUID PRIMARY KEY,
	owner_id UUID REFERENCES users(id) ON DELETE SET NULL,
	text TEXT NOT NULL,
	image_url TEXT NOT NULL,
	prompt TEXT NOT NULL DEFAULT '',
	category_id TEXT NOT NULL,
	likes INTEGER NOT NULL DEFAULT 0 CHECK (likes >= 0),
	points INTEGER NOT NULL DEFAULT 0 CHECK (points >= 0),
	has_watermark BOOLEAN NOT NULL DEFAULT FALSE,
	is_anonymous BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_visions_owner ON visions(owner_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_visions_ranking ON visions(points DESC, likes DESC, created_at DESC);

CREATE TABLE IF NOT EXISTS vision_likes (
	vision_id UUID NOT NULL REFERENCES visions(id) ON DELETE CASCADE,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	contribution INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (vision_id, user_id)
);
CREATE INDEX IF NOT EXISTS idx_vision_likes_user ON vision_likes(user_id);

CREATE TABLE IF NOT EXISTS fundings (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	amount INTEGER NOT NULL CHECK (amount > 0),
	points INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS oidc_config (
	id UUID PRIMARY KEY,
	provider TEXT NOT NULL UNIQUE,
	issuer TEXT NOT NULL,
	domain TEXT,
	client_id TEXT NOT NULL,
	client_secret TEXT,
	redirect_uri TEXT NOT NULL,
	jwks_url TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS cors_config (
	config_key TEXT PRIMARY KEY,
	allowed_origins TEXT NOT NULL,
	allow_credentials BOOLEAN NOT NULL DEFAULT TRUE,
	max_age INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS ratelimit_config (
	config_key TEXT PRIMARY KEY,
	rate TEXT NOT NULL,
	anonymous_limit INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// InitSchema creates any missing tables. It is safe to run on every start.
func (db *DB) InitSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}
