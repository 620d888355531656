package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"linkpulse/internal/domain"
	"linkpulse/internal/repository"
)

type statsRepository struct {
	db *sql.DB
}

// NewStatsRepository creates the SQLite aggregate-query repository.
func NewStatsRepository(d *DB) repository.StatsRepository {
	return &statsRepository{db: d.db}
}

// bucketExpr maps a granularity to the strftime expression producing the
// canonical UTC ISO-8601 bucket string. Stored timestamps are already UTC,
// so no timezone shifting is needed; the format string itself zeroes the
// sub-bucket components, which is SQLite's equivalent of date_trunc.
func bucketExpr(g domain.Granularity) (string, error) {
	switch g {
	case domain.GranularityHour:
		return `strftime('%Y-%m-%dT%H:00:00Z', clicked_at)`, nil
	case domain.GranularityDay:
		return `strftime('%Y-%m-%dT00:00:00Z', clicked_at)`, nil
	case domain.GranularityMonth:
		return `strftime('%Y-%m-01T00:00:00Z', clicked_at)`, nil
	default:
		return "", fmt.Errorf("%w: unknown granularity %q", domain.ErrInvalidInput, g)
	}
}

// TotalClicks counts events in the window, or falls back to the denormalized
// per-link counters when no window is given.
func (r *statsRepository) TotalClicks(ctx context.Context, userID int64, win *domain.Window) (int64, error) {
	var (
		count int64
		err   error
	)
	if win == nil {
		err = r.db.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(click_count), 0) FROM links WHERE user_id = ?`,
			userID,
		).Scan(&count)
	} else {
		err = r.db.QueryRowContext(ctx, `
			SELECT COUNT(*)
			FROM click_events c
			JOIN links l ON l.id = c.link_id
			WHERE l.user_id = ? AND c.clicked_at >= ? AND c.clicked_at < ?`,
			userID, fmtTime(win.Start), fmtTime(win.End),
		).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count clicks: %w", err)
	}
	return count, nil
}

// TotalLinks counts the owner's links.
func (r *statsRepository) TotalLinks(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM links WHERE user_id = ?`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count links: %w", err)
	}
	return count, nil
}

// UniqueVisitors counts distinct non-null visitor hashes across the owner's
// links.
func (r *statsRepository) UniqueVisitors(ctx context.Context, userID int64, win *domain.Window) (int64, error) {
	query := `
		SELECT COUNT(DISTINCT c.visitor_hash)
		FROM click_events c
		JOIN links l ON l.id = c.link_id
		WHERE l.user_id = ? AND c.visitor_hash IS NOT NULL`
	args := []any{userID}
	if win != nil {
		query += ` AND c.clicked_at >= ? AND c.clicked_at < ?`
		args = append(args, fmtTime(win.Start), fmtTime(win.End))
	}

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unique visitors: %w", err)
	}
	return count, nil
}

// UniqueVisitorsForLink counts distinct non-null visitor hashes for one link.
func (r *statsRepository) UniqueVisitorsForLink(ctx context.Context, linkID int64, win *domain.Window) (int64, error) {
	query := `
		SELECT COUNT(DISTINCT visitor_hash)
		FROM click_events
		WHERE link_id = ? AND visitor_hash IS NOT NULL`
	args := []any{linkID}
	if win != nil {
		query += ` AND clicked_at >= ? AND clicked_at < ?`
		args = append(args, fmtTime(win.Start), fmtTime(win.End))
	}

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unique visitors: %w", err)
	}
	return count, nil
}

// UniqueVisitorsPerLink returns the distinct-visitor count keyed by link id.
func (r *statsRepository) UniqueVisitorsPerLink(ctx context.Context, linkIDs []int64, win *domain.Window) (map[int64]int64, error) {
	result := make(map[int64]int64, len(linkIDs))
	if len(linkIDs) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(linkIDs))
	args := make([]any, 0, len(linkIDs)+2)
	for i, id := range linkIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}

	query := `
		SELECT link_id, COUNT(DISTINCT visitor_hash)
		FROM click_events
		WHERE link_id IN (` + strings.Join(placeholders, ", ") + `) AND visitor_hash IS NOT NULL`
	if win != nil {
		query += ` AND clicked_at >= ? AND clicked_at < ?`
		args = append(args, fmtTime(win.Start), fmtTime(win.End))
	}
	query += ` GROUP BY link_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count unique visitors per link: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var linkID, count int64
		if err := rows.Scan(&linkID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan unique visitor row: %w", err)
		}
		result[linkID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unique visitor rows: %w", err)
	}
	return result, nil
}

// ClicksByCountry groups the owner's events by non-null country code.
func (r *statsRepository) ClicksByCountry(ctx context.Context, userID int64, win *domain.Window) ([]domain.CountryCount, error) {
	query := `
		SELECT c.country, COUNT(*), COUNT(DISTINCT c.visitor_hash)
		FROM click_events c
		JOIN links l ON l.id = c.link_id
		WHERE l.user_id = ? AND c.country IS NOT NULL`
	args := []any{userID}
	if win != nil {
		query += ` AND c.clicked_at >= ? AND c.clicked_at < ?`
		args = append(args, fmtTime(win.Start), fmtTime(win.End))
	}
	query += ` GROUP BY c.country ORDER BY COUNT(*) DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to group clicks by country: %w", err)
	}
	defer rows.Close()

	var counts []domain.CountryCount
	for rows.Next() {
		var cc domain.CountryCount
		if err := rows.Scan(&cc.CountryCode, &cc.Clicks, &cc.UniqueVisitors); err != nil {
			return nil, fmt.Errorf("failed to scan country row: %w", err)
		}
		counts = append(counts, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating country rows: %w", err)
	}
	return counts, nil
}

// ClicksTimeSeries buckets the owner's events with strftime. The expression
// already yields the canonical timestamp string, so rows are returned as-is.
func (r *statsRepository) ClicksTimeSeries(ctx context.Context, userID int64, win domain.Window, g domain.Granularity) ([]domain.TimePoint, error) {
	expr, err := bucketExpr(g)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + expr + ` AS bucket, COUNT(*)
		FROM click_events c
		JOIN links l ON l.id = c.link_id
		WHERE l.user_id = ? AND c.clicked_at >= ? AND c.clicked_at < ?
		GROUP BY bucket
		ORDER BY bucket`

	rows, err := r.db.QueryContext(ctx, query, userID, fmtTime(win.Start), fmtTime(win.End))
	if err != nil {
		return nil, fmt.Errorf("failed to build time series: %w", err)
	}
	defer rows.Close()

	var points []domain.TimePoint
	for rows.Next() {
		var p domain.TimePoint
		if err := rows.Scan(&p.Timestamp, &p.Value); err != nil {
			return nil, fmt.Errorf("failed to scan time series row: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating time series rows: %w", err)
	}
	return points, nil
}
