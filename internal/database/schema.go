package database

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS deals (
	id               TEXT PRIMARY KEY,
	product_id       TEXT NOT NULL,
	platform         TEXT NOT NULL,
	title            TEXT NOT NULL,
	normalized_title TEXT NOT NULL,
	price            DOUBLE PRECISION NOT NULL,
	original_price   DOUBLE PRECISION NOT NULL DEFAULT 0,
	discount         DOUBLE PRECISION NOT NULL DEFAULT 0,
	rating           DOUBLE PRECISION NOT NULL DEFAULT 0,
	reviews          INTEGER NOT NULL DEFAULT 0,
	image            TEXT NOT NULL DEFAULT '',
	url              TEXT NOT NULL,
	category         TEXT NOT NULL DEFAULT 'general',
	brand            TEXT NOT NULL DEFAULT '',
	keywords         TEXT[] NOT NULL DEFAULT '{}',
	is_active        BOOLEAN NOT NULL DEFAULT TRUE,
	last_scraped     TIMESTAMPTZ NOT NULL,
	expires_at       TIMESTAMPTZ NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (product_id, platform)
);

CREATE INDEX IF NOT EXISTS idx_deals_normalized_title ON deals (normalized_title);
CREATE INDEX IF NOT EXISTS idx_deals_platform ON deals (platform);
CREATE INDEX IF NOT EXISTS idx_deals_expires_at ON deals (expires_at);
CREATE INDEX IF NOT EXISTS idx_deals_keywords ON deals USING GIN (keywords);

CREATE TABLE IF NOT EXISTS price_history (
	id          BIGSERIAL PRIMARY KEY,
	product_id  TEXT NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	url         TEXT NOT NULL DEFAULT '',
	price       DOUBLE PRECISION NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_price_history_product ON price_history (product_id, recorded_at DESC);
`

// EnsureSchema creates the tables and indexes the store relies on. It is
// idempotent and runs at startup.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
