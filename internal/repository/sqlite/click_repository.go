package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"linkpulse/internal/domain"
	"linkpulse/internal/repository"
)

type clickRepository struct {
	db *sql.DB
}

// NewClickRepository creates the SQLite click repository.
func NewClickRepository(d *DB) repository.ClickRepository {
	return &clickRepository{db: d.db}
}

const clickColumns = `id, link_id, clicked_at, referrer_host, ua_raw, visitor_hash, country,
	device_category, browser_name, browser_version, os_name, os_version, engine`

// Record inserts the event and bumps the link's counters in one transaction.
// The increment is applied in SQL so concurrent recordings never lose a
// click.
func (r *clickRepository) Record(ctx context.Context, event *domain.ClickEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO click_events (
			link_id, clicked_at, referrer_host, ua_raw, visitor_hash, country,
			device_category, browser_name, browser_version, os_name, os_version, engine
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.LinkID,
		fmtTime(event.ClickedAt),
		event.ReferrerHost,
		event.UARaw,
		event.VisitorHash,
		event.Country,
		event.DeviceCategory,
		event.BrowserName,
		event.BrowserVersion,
		event.OSName,
		event.OSVersion,
		event.Engine,
	)
	if err != nil {
		return fmt.Errorf("failed to insert click event: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		event.ID = id
	}

	upd, err := tx.ExecContext(ctx, `
		UPDATE links
		SET click_count = click_count + 1, last_clicked_at = ?
		WHERE id = ?`,
		fmtTime(event.ClickedAt), event.LinkID,
	)
	if err != nil {
		return fmt.Errorf("failed to update link counters: %w", err)
	}
	if n, _ := upd.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit click: %w", err)
	}
	return nil
}

// RecentByLink returns the newest events for a link.
func (r *clickRepository) RecentByLink(ctx context.Context, linkID int64, limit int) ([]*domain.ClickEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+clickColumns+`
		FROM click_events
		WHERE link_id = ?
		ORDER BY clicked_at DESC, id DESC
		LIMIT ?`,
		linkID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get clicks: %w", err)
	}
	defer rows.Close()

	var events []*domain.ClickEvent
	for rows.Next() {
		evt := &domain.ClickEvent{}
		var clicked string
		err := rows.Scan(
			&evt.ID,
			&evt.LinkID,
			&clicked,
			&evt.ReferrerHost,
			&evt.UARaw,
			&evt.VisitorHash,
			&evt.Country,
			&evt.DeviceCategory,
			&evt.BrowserName,
			&evt.BrowserVersion,
			&evt.OSName,
			&evt.OSVersion,
			&evt.Engine,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan click event: %w", err)
		}
		if evt.ClickedAt, err = parseTime(clicked); err != nil {
			return nil, err
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating click events: %w", err)
	}
	return events, nil
}

// CountSince counts a link's events at or after the given instant.
func (r *clickRepository) CountSince(ctx context.Context, linkID int64, since time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM click_events WHERE link_id = ? AND clicked_at >= ?`,
		linkID, fmtTime(since),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count clicks: %w", err)
	}
	return count, nil
}
