package postgres

import (
	"context"
	"fmt"
	"time"

	"linkpulse/internal/domain"
	"linkpulse/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

type statsRepository struct {
	db *pgxpool.Pool
}

// NewStatsRepository creates the PostgreSQL aggregate-query repository.
func NewStatsRepository(db *pgxpool.Pool) repository.StatsRepository {
	return &statsRepository{db: db}
}

// TotalClicks counts events in the window, or falls back to the denormalized
// per-link counters when no window is given.
func (r *statsRepository) TotalClicks(ctx context.Context, userID int64, win *domain.Window) (int64, error) {
	var (
		count int64
		err   error
	)
	if win == nil {
		query := `SELECT COALESCE(SUM(click_count), 0) FROM links WHERE user_id = $1`
		err = r.db.QueryRow(ctx, query, userID).Scan(&count)
	} else {
		query := `
			SELECT COUNT(*)
			FROM click_events c
			JOIN links l ON l.id = c.link_id
			WHERE l.user_id = $1 AND c.clicked_at >= $2 AND c.clicked_at < $3
		`
		err = r.db.QueryRow(ctx, query, userID, win.Start, win.End).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count clicks: %w", err)
	}
	return count, nil
}

// TotalLinks counts the owner's links.
func (r *statsRepository) TotalLinks(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM links WHERE user_id = $1`, userID).Scan(&count)
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
		WHERE l.user_id = $1 AND c.visitor_hash IS NOT NULL
	`
	args := []any{userID}
	if win != nil {
		query += ` AND c.clicked_at >= $2 AND c.clicked_at < $3`
		args = append(args, win.Start, win.End)
	}

	var count int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unique visitors: %w", err)
	}
	return count, nil
}

// UniqueVisitorsForLink counts distinct non-null visitor hashes for one link.
func (r *statsRepository) UniqueVisitorsForLink(ctx context.Context, linkID int64, win *domain.Window) (int64, error) {
	query := `
		SELECT COUNT(DISTINCT visitor_hash)
		FROM click_events
		WHERE link_id = $1 AND visitor_hash IS NOT NULL
	`
	args := []any{linkID}
	if win != nil {
		query += ` AND clicked_at >= $2 AND clicked_at < $3`
		args = append(args, win.Start, win.End)
	}

	var count int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
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

	query := `
		SELECT link_id, COUNT(DISTINCT visitor_hash)
		FROM click_events
		WHERE link_id = ANY($1) AND visitor_hash IS NOT NULL
	`
	args := []any{linkIDs}
	if win != nil {
		query += ` AND clicked_at >= $2 AND clicked_at < $3`
		args = append(args, win.Start, win.End)
	}
	query += ` GROUP BY link_id`

	rows, err := r.db.Query(ctx, query, args...)
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
		WHERE l.user_id = $1 AND c.country IS NOT NULL
	`
	args := []any{userID}
	if win != nil {
		query += ` AND c.clicked_at >= $2 AND c.clicked_at < $3`
		args = append(args, win.Start, win.End)
	}
	query += ` GROUP BY c.country ORDER BY COUNT(*) DESC`

	rows, err := r.db.Query(ctx, query, args...)
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

// ClicksTimeSeries buckets the owner's events with date_trunc. Truncation
// runs on the UTC projection of clicked_at so buckets are independent of the
// session timezone, and the output uses the same canonical timestamp string
// as the SQLite dialect.
func (r *statsRepository) ClicksTimeSeries(ctx context.Context, userID int64, win domain.Window, g domain.Granularity) ([]domain.TimePoint, error) {
	switch g {
	case domain.GranularityHour, domain.GranularityDay, domain.GranularityMonth:
	default:
		return nil, fmt.Errorf("%w: unknown granularity %q", domain.ErrInvalidInput, g)
	}

	query := `
		SELECT date_trunc($1, c.clicked_at AT TIME ZONE 'UTC') AS bucket, COUNT(*)
		FROM click_events c
		JOIN links l ON l.id = c.link_id
		WHERE l.user_id = $2 AND c.clicked_at >= $3 AND c.clicked_at < $4
		GROUP BY bucket
		ORDER BY bucket
	`
	rows, err := r.db.Query(ctx, query, string(g), userID, win.Start, win.End)
	if err != nil {
		return nil, fmt.Errorf("failed to build time series: %w", err)
	}
	defer rows.Close()

	var points []domain.TimePoint
	for rows.Next() {
		var bucket time.Time
		var count int64
		if err := rows.Scan(&bucket, &count); err != nil {
			return nil, fmt.Errorf("failed to scan time series row: %w", err)
		}
		points = append(points, domain.TimePoint{
			Timestamp: bucket.UTC().Format(time.RFC3339),
			Value:     count,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating time series rows: %w", err)
	}
	return points, nil
}
