package repository

import (
	"context"
	"time"

	"linkpulse/internal/domain"
)

// SlugFunc derives the public short code for a freshly assigned link id.
// It is passed into Create so the id→slug assignment happens inside the
// same transaction as the insert.
type SlugFunc func(id int64) (string, error)

// LinkRepository is the data-access interface for links. Implementations
// exist for PostgreSQL (pgx) and SQLite (database/sql); both must return
// domain.ErrNotFound for missing, inactive-where-relevant, or foreign-owned
// rows so callers cannot tell those cases apart.
type LinkRepository interface {
	// Create inserts the link, obtains its id, and assigns slugFor(id),
	// all within one transaction. On success link.ID and link.Slug are set.
	Create(ctx context.Context, link *domain.Link, slugFor SlugFunc) error

	// GetActiveBySlug resolves a public code to its active link.
	GetActiveBySlug(ctx context.Context, slug string) (*domain.Link, error)

	// GetByID fetches one of the owner's links.
	GetByID(ctx context.Context, userID, linkID int64) (*domain.Link, error)

	// ListByOwner returns the owner's links, newest first.
	ListByOwner(ctx context.Context, userID int64, limit, offset int) ([]*domain.Link, error)

	// UpdateStatus toggles is_active on one of the owner's links and
	// returns the updated row.
	UpdateStatus(ctx context.Context, userID, linkID int64, active bool) (*domain.Link, error)
}

// ClickRepository is the data-access interface for click events.
type ClickRepository interface {
	// Record persists the event and bumps the owning link's click_count
	// and last_clicked_at as a single atomic unit: either both changes
	// commit or neither does. The counter update must be applied in the
	// database (not read-modify-write) so concurrent redirects never lose
	// a click.
	Record(ctx context.Context, event *domain.ClickEvent) error

	// RecentByLink returns the newest events for a link.
	RecentByLink(ctx context.Context, linkID int64, limit int) ([]*domain.ClickEvent, error)

	// CountSince counts a link's events at or after the given instant.
	CountSince(ctx context.Context, linkID int64, since time.Time) (int64, error)
}

// StatsRepository is the grouped/windowed query interface consumed by the
// aggregation engine. A nil window means "all time". All methods are
// read-only and safe to run concurrently with click recording.
type StatsRepository interface {
	// TotalClicks counts the owner's click events within the window; with
	// no window it falls back to the denormalized per-link counters.
	TotalClicks(ctx context.Context, userID int64, win *domain.Window) (int64, error)

	// TotalLinks counts the owner's links, independent of any window.
	TotalLinks(ctx context.Context, userID int64) (int64, error)

	// UniqueVisitors counts distinct non-null visitor hashes across the
	// owner's links.
	UniqueVisitors(ctx context.Context, userID int64, win *domain.Window) (int64, error)

	// UniqueVisitorsForLink counts distinct non-null visitor hashes for
	// one link.
	UniqueVisitorsForLink(ctx context.Context, linkID int64, win *domain.Window) (int64, error)

	// UniqueVisitorsPerLink returns the distinct-visitor count per link id.
	// Links with no events are simply absent from the result.
	UniqueVisitorsPerLink(ctx context.Context, linkIDs []int64, win *domain.Window) (map[int64]int64, error)

	// ClicksByCountry groups the owner's events by non-null country code,
	// ordered by click count descending.
	ClicksByCountry(ctx context.Context, userID int64, win *domain.Window) ([]domain.CountryCount, error)

	// ClicksTimeSeries buckets the owner's events by the granularity,
	// chronologically, with bucket timestamps normalized to UTC ISO-8601
	// regardless of dialect.
	ClicksTimeSeries(ctx context.Context, userID int64, win domain.Window, g domain.Granularity) ([]domain.TimePoint, error)
}
