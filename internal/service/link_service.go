package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"linkpulse/internal/domain"
	"linkpulse/internal/fingerprint"
	"linkpulse/internal/metrics"
	"linkpulse/internal/repository"
	"linkpulse/internal/shortcode"
	"linkpulse/internal/uaparse"
	"linkpulse/pkg/validator"
)

// Cache is the slug→link cache consumed by Resolve. Failures are never
// fatal; a broken cache degrades to database lookups.
type Cache interface {
	GetLink(ctx context.Context, slug string) (*domain.Link, error)
	SetLink(ctx context.Context, slug string, link *domain.Link) error
	DeleteLink(ctx context.Context, slug string) error
}

// GeoResolver is the best-effort country lookup used while recording clicks.
// Implementations must return nil on any failure, never an error.
type GeoResolver interface {
	ResolveCountry(ctx context.Context, ip string) *string
}

// ClickContext carries the request attributes the recorder needs. Empty
// strings mean the attribute was not present on the request.
type ClickContext struct {
	IP           string
	UserAgent    string
	ReferrerHost string
}

// LinkStats is the per-link stats page payload.
type LinkStats struct {
	Link           *domain.Link
	ClicksLast24h  int64
	UniqueVisitors int64
	RecentClicks   []*domain.ClickEvent
}

// LinkService orchestrates link lifecycle and click capture over the
// repositories, the cache, and the geo resolver.
type LinkService struct {
	links   repository.LinkRepository
	clicks  repository.ClickRepository
	stats   repository.StatsRepository
	cache   Cache
	geo     GeoResolver
	logger  *slog.Logger
	baseURL string
}

// NewLinkService creates a new link service. baseURL is the public origin
// short URLs are minted under, without a trailing slash.
func NewLinkService(
	links repository.LinkRepository,
	clicks repository.ClickRepository,
	stats repository.StatsRepository,
	cache Cache,
	geo GeoResolver,
	logger *slog.Logger,
	baseURL string,
) *LinkService {
	return &LinkService{
		links:   links,
		clicks:  clicks,
		stats:   stats,
		cache:   cache,
		geo:     geo,
		logger:  logger,
		baseURL: baseURL,
	}
}

// CreateLink validates the target and inserts the link. The slug is derived
// from the assigned id inside the repository's transaction, so it exists by
// the time this returns.
func (s *LinkService) CreateLink(ctx context.Context, userID int64, targetURL string) (*domain.Link, error) {
	if err := validator.ValidateURL(targetURL); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, err)
	}

	link := domain.NewLink(userID, targetURL)
	if err := s.links.Create(ctx, link, shortcode.Encode); err != nil {
		return nil, fmt.Errorf("failed to create link: %w", err)
	}

	metrics.RecordLinkCreated()
	return link, nil
}

// Resolve maps a public code to its active link, cache first.
func (s *LinkService) Resolve(ctx context.Context, slug string) (*domain.Link, error) {
	cached, err := s.cache.GetLink(ctx, slug)
	if err != nil {
		s.logger.Warn("link cache read failed", "slug", slug, "error", err)
	}
	if cached != nil && cached.IsActive {
		return cached, nil
	}

	link, err := s.links.GetActiveBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetLink(ctx, slug, link); err != nil {
		s.logger.Warn("link cache write failed", "slug", slug, "error", err)
	}
	return link, nil
}

// RecordClick captures one click event for a resolved link: fingerprint and
// user-agent classification first (local), then the geo lookup (the only
// network-bound step), then a single transactional write that persists the
// event and bumps the link's counters.
//
// Callers on the redirect path must treat any returned error as non-fatal:
// the redirect already succeeded and analytics never takes it back.
func (s *LinkService) RecordClick(ctx context.Context, link *domain.Link, cc ClickContext) error {
	evt := domain.NewClickEvent(link.ID)

	if cc.ReferrerHost != "" {
		evt.ReferrerHost = &cc.ReferrerHost
	}
	if cc.UserAgent != "" {
		evt.UARaw = &cc.UserAgent
	}

	evt.VisitorHash = fingerprint.Hash(cc.IP, cc.UserAgent)

	c := uaparse.Classify(cc.UserAgent)
	evt.DeviceCategory = c.DeviceCategory
	evt.BrowserName = c.BrowserName
	evt.BrowserVersion = c.BrowserVersion
	evt.OSName = c.OSName
	evt.OSVersion = c.OSVersion
	evt.Engine = c.Engine

	evt.Country = s.geo.ResolveCountry(ctx, cc.IP)

	if err := s.clicks.Record(ctx, evt); err != nil {
		metrics.RecordClickRecordFailure()
		return fmt.Errorf("failed to record click: %w", err)
	}

	metrics.RecordClickRecorded()
	return nil
}

// ListLinks returns the owner's links, newest first.
func (s *LinkService) ListLinks(ctx context.Context, userID int64, limit, offset int) ([]*domain.Link, error) {
	return s.links.ListByOwner(ctx, userID, limit, offset)
}

// GetLinkStats composes the stats page for one of the owner's links.
func (s *LinkService) GetLinkStats(ctx context.Context, userID, linkID int64) (*LinkStats, error) {
	link, err := s.links.GetByID(ctx, userID, linkID)
	if err != nil {
		return nil, err
	}

	since := time.Now().UTC().Add(-24 * time.Hour)
	clicks24h, err := s.clicks.CountSince(ctx, link.ID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count recent clicks: %w", err)
	}

	unique, err := s.stats.UniqueVisitorsForLink(ctx, link.ID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count unique visitors: %w", err)
	}

	recent, err := s.clicks.RecentByLink(ctx, link.ID, 50)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent clicks: %w", err)
	}

	return &LinkStats{
		Link:           link,
		ClicksLast24h:  clicks24h,
		UniqueVisitors: unique,
		RecentClicks:   recent,
	}, nil
}

// UpdateLinkStatus toggles is_active and evicts the slug from cache so a
// deactivated link stops redirecting immediately.
func (s *LinkService) UpdateLinkStatus(ctx context.Context, userID, linkID int64, active bool) (*domain.Link, error) {
	link, err := s.links.UpdateStatus(ctx, userID, linkID, active)
	if err != nil {
		return nil, err
	}

	if link.Slug != nil {
		if err := s.cache.DeleteLink(ctx, *link.Slug); err != nil {
			s.logger.Warn("link cache evict failed", "slug", *link.Slug, "error", err)
		}
	}
	return link, nil
}
