package postgres

import (
	"context"
	"fmt"
	"time"

	"linkpulse/internal/domain"
	"linkpulse/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

type clickRepository struct {
	db *pgxpool.Pool
}

// NewClickRepository creates the PostgreSQL click repository.
func NewClickRepository(db *pgxpool.Pool) repository.ClickRepository {
	return &clickRepository{db: db}
}

const clickColumns = `id, link_id, clicked_at, referrer_host, ua_raw, visitor_hash, country,
	device_category, browser_name, browser_version, os_name, os_version, engine`

// Record inserts the event and bumps the link's denormalized counters in one
// transaction. The increment runs in the database, so concurrent redirects
// on the same link serialize on the row instead of racing in application
// code.
func (r *clickRepository) Record(ctx context.Context, event *domain.ClickEvent) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO click_events (
			link_id, clicked_at, referrer_host, ua_raw, visitor_hash, country,
			device_category, browser_name, browser_version, os_name, os_version, engine
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		) RETURNING id
	`
	err = tx.QueryRow(ctx, insert,
		event.LinkID,
		event.ClickedAt,
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
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to insert click event: %w", err)
	}

	update := `
		UPDATE links
		SET click_count = click_count + 1, last_clicked_at = $1
		WHERE id = $2
	`
	result, err := tx.Exec(ctx, update, event.ClickedAt, event.LinkID)
	if err != nil {
		return fmt.Errorf("failed to update link counters: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit click: %w", err)
	}
	return nil
}

// RecentByLink returns the newest events for a link.
func (r *clickRepository) RecentByLink(ctx context.Context, linkID int64, limit int) ([]*domain.ClickEvent, error) {
	query := `
		SELECT ` + clickColumns + `
		FROM click_events
		WHERE link_id = $1
		ORDER BY clicked_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, linkID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get clicks: %w", err)
	}
	defer rows.Close()

	var events []*domain.ClickEvent
	for rows.Next() {
		evt := &domain.ClickEvent{}
		err := rows.Scan(
			&evt.ID,
			&evt.LinkID,
			&evt.ClickedAt,
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
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating click events: %w", err)
	}
	return events, nil
}

// CountSince counts a link's events at or after the given instant.
func (r *clickRepository) CountSince(ctx context.Context, linkID int64, since time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM click_events WHERE link_id = $1 AND clicked_at >= $2`

	var count int64
	if err := r.db.QueryRow(ctx, query, linkID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count clicks: %w", err)
	}
	return count, nil
}
