// Package postgres implements the repository interfaces on PostgreSQL
// via pgx. Time-series bucketing uses date_trunc; the SQLite implementation
// of the same interfaces uses strftime and both emit identical buckets.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// InitDB initializes the connection pool, called once at startup.
func InitDB(ctx context.Context, dsn string, maxConns, minConns int, maxLifetime time.Duration) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = int32(maxConns)
	config.MinConns = int32(minConns)
	config.MaxConnLifetime = maxLifetime
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// EnsureSchema creates the tables and indexes if they do not exist yet.
// Deployments with a real migration pipeline can skip this.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS links (
	id              BIGSERIAL PRIMARY KEY,
	user_id         BIGINT NOT NULL,
	slug            TEXT UNIQUE,
	target_url      TEXT NOT NULL,
	is_active       BOOLEAN NOT NULL DEFAULT TRUE,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	click_count     BIGINT NOT NULL DEFAULT 0,
	last_clicked_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS ix_links_user_created_at ON links (user_id, created_at);

CREATE TABLE IF NOT EXISTS click_events (
	id              BIGSERIAL PRIMARY KEY,
	link_id         BIGINT NOT NULL REFERENCES links(id) ON DELETE CASCADE,
	clicked_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	referrer_host   VARCHAR(255),
	ua_raw          VARCHAR(1024),
	visitor_hash    VARCHAR(64),
	country         VARCHAR(2),
	device_category VARCHAR(20),
	browser_name    VARCHAR(50),
	browser_version VARCHAR(20),
	os_name         VARCHAR(50),
	os_version      VARCHAR(20),
	engine          VARCHAR(20)
);

CREATE INDEX IF NOT EXISTS ix_click_events_link_clicked_at ON click_events (link_id, clicked_at);
CREATE INDEX IF NOT EXISTS ix_click_events_clicked_at ON click_events (clicked_at);
`
