package sqlite

import "database/sql"

// applyMigrations runs schema initialization. The schema is embedded; a
// standalone migration tool is overkill for a single-file database.
func applyMigrations(db *sql.DB) error {
	_, err := db.Exec(schemaSQL)
	return err
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS links (
  id              INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id         INTEGER NOT NULL,
  slug            TEXT UNIQUE,
  target_url      TEXT NOT NULL,
  is_active       INTEGER NOT NULL DEFAULT 1,
  created_at      TEXT NOT NULL,
  click_count     INTEGER NOT NULL DEFAULT 0,
  last_clicked_at TEXT NULL
);

CREATE INDEX IF NOT EXISTS ix_links_user_created_at ON links(user_id, created_at);

CREATE TABLE IF NOT EXISTS click_events (
  id              INTEGER PRIMARY KEY AUTOINCREMENT,
  link_id         INTEGER NOT NULL REFERENCES links(id) ON DELETE CASCADE,
  clicked_at      TEXT NOT NULL,
  referrer_host   TEXT NULL,
  ua_raw          TEXT NULL,
  visitor_hash    TEXT NULL,
  country         TEXT NULL,
  device_category TEXT NULL,
  browser_name    TEXT NULL,
  browser_version TEXT NULL,
  os_name         TEXT NULL,
  os_version      TEXT NULL,
  engine          TEXT NULL
);

CREATE INDEX IF NOT EXISTS ix_click_events_link_clicked_at ON click_events(link_id, clicked_at);
CREATE INDEX IF NOT EXISTS ix_click_events_clicked_at ON click_events(clicked_at);
`
