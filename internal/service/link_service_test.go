package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"linkpulse/internal/domain"
	"linkpulse/internal/repository"
	"linkpulse/internal/shortcode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==================== MOCKS ====================

// MockLinkRepository is a mock implementation of repository.LinkRepository
type MockLinkRepository struct {
	mock.Mock
	nextID int64
}

func (m *MockLinkRepository) Create(ctx context.Context, link *domain.Link, slugFor repository.SlugFunc) error {
	args := m.Called(ctx, link)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	// Honor the repository contract: assign the id and derive the slug
	// inside Create.
	m.nextID++
	link.ID = m.nextID
	slug, err := slugFor(link.ID)
	if err != nil {
		return err
	}
	link.Slug = &slug
	return nil
}

func (m *MockLinkRepository) GetActiveBySlug(ctx context.Context, slug string) (*domain.Link, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

func (m *MockLinkRepository) GetByID(ctx context.Context, userID, linkID int64) (*domain.Link, error) {
	args := m.Called(ctx, userID, linkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

func (m *MockLinkRepository) ListByOwner(ctx context.Context, userID int64, limit, offset int) ([]*domain.Link, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Link), args.Error(1)
}

func (m *MockLinkRepository) UpdateStatus(ctx context.Context, userID, linkID int64, active bool) (*domain.Link, error) {
	args := m.Called(ctx, userID, linkID, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

// MockClickRepository is a mock implementation of repository.ClickRepository
type MockClickRepository struct {
	mock.Mock
}

func (m *MockClickRepository) Record(ctx context.Context, event *domain.ClickEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockClickRepository) RecentByLink(ctx context.Context, linkID int64, limit int) ([]*domain.ClickEvent, error) {
	args := m.Called(ctx, linkID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ClickEvent), args.Error(1)
}

func (m *MockClickRepository) CountSince(ctx context.Context, linkID int64, since time.Time) (int64, error) {
	args := m.Called(ctx, linkID, since)
	return args.Get(0).(int64), args.Error(1)
}

// MockStatsRepository is a mock implementation of repository.StatsRepository
type MockStatsRepository struct {
	mock.Mock
}

func (m *MockStatsRepository) TotalClicks(ctx context.Context, userID int64, win *domain.Window) (int64, error) {
	args := m.Called(ctx, userID, win)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStatsRepository) TotalLinks(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStatsRepository) UniqueVisitors(ctx context.Context, userID int64, win *domain.Window) (int64, error) {
	args := m.Called(ctx, userID, win)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStatsRepository) UniqueVisitorsForLink(ctx context.Context, linkID int64, win *domain.Window) (int64, error) {
	args := m.Called(ctx, linkID, win)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStatsRepository) UniqueVisitorsPerLink(ctx context.Context, linkIDs []int64, win *domain.Window) (map[int64]int64, error) {
	args := m.Called(ctx, linkIDs, win)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]int64), args.Error(1)
}

func (m *MockStatsRepository) ClicksByCountry(ctx context.Context, userID int64, win *domain.Window) ([]domain.CountryCount, error) {
	args := m.Called(ctx, userID, win)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CountryCount), args.Error(1)
}

func (m *MockStatsRepository) ClicksTimeSeries(ctx context.Context, userID int64, win domain.Window, g domain.Granularity) ([]domain.TimePoint, error) {
	args := m.Called(ctx, userID, win, g)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TimePoint), args.Error(1)
}

// MockCache is a mock implementation of Cache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetLink(ctx context.Context, slug string) (*domain.Link, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

func (m *MockCache) SetLink(ctx context.Context, slug string, link *domain.Link) error {
	args := m.Called(ctx, slug, link)
	return args.Error(0)
}

func (m *MockCache) DeleteLink(ctx context.Context, slug string) error {
	args := m.Called(ctx, slug)
	return args.Error(0)
}

// MockGeoResolver is a mock implementation of GeoResolver
type MockGeoResolver struct {
	mock.Mock
}

func (m *MockGeoResolver) ResolveCountry(ctx context.Context, ip string) *string {
	args := m.Called(ctx, ip)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*string)
}

func newTestService(links *MockLinkRepository, clicks *MockClickRepository, stats *MockStatsRepository, cache *MockCache, geo *MockGeoResolver) *LinkService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewLinkService(links, clicks, stats, cache, geo, logger, "http://short.test")
}

func strPtr(s string) *string { return &s }

// ==================== TESTS ====================

func TestCreateLink_Success(t *testing.T) {
	ctx := context.Background()
	mockLinks := new(MockLinkRepository)
	mockClicks := new(MockClickRepository)
	mockStats := new(MockStatsRepository)
	mockCache := new(MockCache)
	mockGeo := new(MockGeoResolver)

	service := newTestService(mockLinks, mockClicks, mockStats, mockCache, mockGeo)

	mockLinks.On("Create", ctx, mock.AnythingOfType("*domain.Link")).Return(nil)

	link, err := service.CreateLink(ctx, 7, "https://example.com/page")

	require.NoError(t, err)
	assert.Equal(t, int64(7), link.UserID)
	assert.Equal(t, "https://example.com/page", link.TargetURL)
	assert.True(t, link.IsActive)
	require.NotNil(t, link.Slug)

	// The slug is derived from the assigned id inside Create.
	want, err := shortcode.Encode(link.ID)
	require.NoError(t, err)
	assert.Equal(t, want, *link.Slug)
	mockLinks.AssertExpectations(t)
}

func TestCreateLink_InvalidURL(t *testing.T) {
	ctx := context.Background()
	mockLinks := new(MockLinkRepository)
	service := newTestService(mockLinks, new(MockClickRepository), new(MockStatsRepository), new(MockCache), new(MockGeoResolver))

	for _, target := range []string{"", "notaurl", "ftp://example.com/file", "https://"} {
		link, err := service.CreateLink(ctx, 1, target)
		assert.Nil(t, link, "target %q", target)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "target %q", target)
	}

	// The repository must never see an invalid target.
	mockLinks.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestResolve_CacheHit(t *testing.T) {
	ctx := context.Background()
	mockLinks := new(MockLinkRepository)
	mockCache := new(MockCache)
	service := newTestService(mockLinks, new(MockClickRepository), new(MockStatsRepository), mockCache, new(MockGeoResolver))

	cached := &domain.Link{ID: 1, Slug: strPtr("b"), TargetURL: "https://example.com", IsActive: true}
	mockCache.On("GetLink", ctx, "b").Return(cached, nil)

	link, err := service.Resolve(ctx, "b")

	require.NoError(t, err)
	assert.Equal(t, cached, link)
	mockLinks.AssertNotCalled(t, "GetActiveBySlug", mock.Anything, mock.Anything)
	mockCache.AssertExpectations(t)
}

func TestResolve_CacheMissFallsBackToDatabase(t *testing.T) {
	ctx := context.Background()
	mockLinks := new(MockLinkRepository)
	mockCache := new(MockCache)
	service := newTestService(mockLinks, new(MockClickRepository), new(MockStatsRepository), mockCache, new(MockGeoResolver))

	link := &domain.Link{ID: 1, Slug: strPtr("b"), TargetURL: "https://example.com", IsActive: true}
	mockCache.On("GetLink", ctx, "b").Return(nil, nil)
	mockLinks.On("GetActiveBySlug", ctx, "b").Return(link, nil)
	mockCache.On("SetLink", ctx, "b", link).Return(nil)

	got, err := service.Resolve(ctx, "b")

	require.NoError(t, err)
	assert.Equal(t, link, got)
	mockLinks.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestResolve_CachedInactiveLinkIsIgnored(t *testing.T) {
	ctx := context.Background()
	mockLinks := new(MockLinkRepository)
	mockCache := new(MockCache)
	service := newTestService(mockLinks, new(MockClickRepository), new(MockStatsRepository), mockCache, new(MockGeoResolver))

	stale := &domain.Link{ID: 1, Slug: strPtr("b"), TargetURL: "https://example.com", IsActive: false}
	mockCache.On("GetLink", ctx, "b").Return(stale, nil)
	mockLinks.On("GetActiveBySlug", ctx, "b").Return(nil, domain.ErrNotFound)

	link, err := service.Resolve(ctx, "b")

	assert.Nil(t, link)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	mockLinks.AssertExpectations(t)
}

func TestResolve_CacheErrorIsNonFatal(t *testing.T) {
	ctx := context.Background()
	mockLinks := new(MockLinkRepository)
	mockCache := new(MockCache)
	service := newTestService(mockLinks, new(MockClickRepository), new(MockStatsRepository), mockCache, new(MockGeoResolver))

	link := &domain.Link{ID: 1, Slug: strPtr("b"), TargetURL: "https://example.com", IsActive: true}
	mockCache.On("GetLink", ctx, "b").Return(nil, errors.New("redis down"))
	mockLinks.On("GetActiveBySlug", ctx, "b").Return(link, nil)
	mockCache.On("SetLink", ctx, "b", link).Return(errors.New("redis down"))

	got, err := service.Resolve(ctx, "b")

	require.NoError(t, err)
	assert.Equal(t, link, got)
}

func TestRecordClick_PopulatesEvent(t *testing.T) {
	ctx := context.Background()
	mockClicks := new(MockClickRepository)
	mockGeo := new(MockGeoResolver)
	service := newTestService(new(MockLinkRepository), mockClicks, new(MockStatsRepository), new(MockCache), mockGeo)

	link := &domain.Link{ID: 42, Slug: strPtr("b"), TargetURL: "https://example.com", IsActive: true}
	chromeUA := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	var recorded *domain.ClickEvent
	mockGeo.On("ResolveCountry", ctx, "203.0.113.9").Return(strPtr("DE"))
	mockClicks.On("Record", ctx, mock.AnythingOfType("*domain.ClickEvent")).
		Run(func(args mock.Arguments) {
			recorded = args.Get(1).(*domain.ClickEvent)
		}).
		Return(nil)

	err := service.RecordClick(ctx, link, ClickContext{
		IP:           "203.0.113.9",
		UserAgent:    chromeUA,
		ReferrerHost: "news.ycombinator.com",
	})

	require.NoError(t, err)
	require.NotNil(t, recorded)
	assert.Equal(t, int64(42), recorded.LinkID)
	assert.False(t, recorded.ClickedAt.IsZero())

	require.NotNil(t, recorded.VisitorHash)
	assert.Len(t, *recorded.VisitorHash, 64)

	require.NotNil(t, recorded.ReferrerHost)
	assert.Equal(t, "news.ycombinator.com", *recorded.ReferrerHost)

	require.NotNil(t, recorded.Country)
	assert.Equal(t, "DE", *recorded.Country)

	require.NotNil(t, recorded.BrowserName)
	assert.Equal(t, "Chrome", *recorded.BrowserName)
	require.NotNil(t, recorded.DeviceCategory)
	assert.Equal(t, "desktop", *recorded.DeviceCategory)
	require.NotNil(t, recorded.Engine)
	assert.Equal(t, "Blink", *recorded.Engine)

	require.NotNil(t, recorded.UARaw)
	assert.Equal(t, chromeUA, *recorded.UARaw)
	mockClicks.AssertExpectations(t)
	mockGeo.AssertExpectations(t)
}

func TestRecordClick_NoIPMeansNoFingerprint(t *testing.T) {
	ctx := context.Background()
	mockClicks := new(MockClickRepository)
	mockGeo := new(MockGeoResolver)
	service := newTestService(new(MockLinkRepository), mockClicks, new(MockStatsRepository), new(MockCache), mockGeo)

	link := &domain.Link{ID: 1, TargetURL: "https://example.com", IsActive: true}

	var recorded *domain.ClickEvent
	mockGeo.On("ResolveCountry", ctx, "").Return(nil)
	mockClicks.On("Record", ctx, mock.AnythingOfType("*domain.ClickEvent")).
		Run(func(args mock.Arguments) {
			recorded = args.Get(1).(*domain.ClickEvent)
		}).
		Return(nil)

	err := service.RecordClick(ctx, link, ClickContext{UserAgent: "curl/8.4.0"})

	require.NoError(t, err)
	require.NotNil(t, recorded)
	assert.Nil(t, recorded.VisitorHash)
	assert.Nil(t, recorded.Country)
	assert.Nil(t, recorded.ReferrerHost)
}

func TestRecordClick_RepositoryError(t *testing.T) {
	ctx := context.Background()
	mockClicks := new(MockClickRepository)
	mockGeo := new(MockGeoResolver)
	service := newTestService(new(MockLinkRepository), mockClicks, new(MockStatsRepository), new(MockCache), mockGeo)

	link := &domain.Link{ID: 1, TargetURL: "https://example.com", IsActive: true}
	mockGeo.On("ResolveCountry", ctx, mock.Anything).Return(nil)
	mockClicks.On("Record", ctx, mock.Anything).Return(errors.New("database is locked"))

	err := service.RecordClick(ctx, link, ClickContext{IP: "203.0.113.9"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record click")
}

func TestGetLinkStats_Success(t *testing.T) {
	ctx := context.Background()
	mockLinks := new(MockLinkRepository)
	mockClicks := new(MockClickRepository)
	mockStats := new(MockStatsRepository)
	service := newTestService(mockLinks, mockClicks, mockStats, new(MockCache), new(MockGeoResolver))

	link := &domain.Link{ID: 5, UserID: 7, Slug: strPtr("f"), TargetURL: "https://example.com", ClickCount: 12}
	recent := []*domain.ClickEvent{{ID: 1, LinkID: 5}}

	mockLinks.On("GetByID", ctx, int64(7), int64(5)).Return(link, nil)
	mockClicks.On("CountSince", ctx, int64(5), mock.AnythingOfType("time.Time")).Return(int64(3), nil)
	mockStats.On("UniqueVisitorsForLink", ctx, int64(5), (*domain.Window)(nil)).Return(int64(2), nil)
	mockClicks.On("RecentByLink", ctx, int64(5), 50).Return(recent, nil)

	stats, err := service.GetLinkStats(ctx, 7, 5)

	require.NoError(t, err)
	assert.Equal(t, link, stats.Link)
	assert.Equal(t, int64(3), stats.ClicksLast24h)
	assert.Equal(t, int64(2), stats.UniqueVisitors)
	assert.Equal(t, recent, stats.RecentClicks)
}

func TestGetLinkStats_NotFound(t *testing.T) {
	ctx := context.Background()
	mockLinks := new(MockLinkRepository)
	service := newTestService(mockLinks, new(MockClickRepository), new(MockStatsRepository), new(MockCache), new(MockGeoResolver))

	mockLinks.On("GetByID", ctx, int64(7), int64(999)).Return(nil, domain.ErrNotFound)

	stats, err := service.GetLinkStats(ctx, 7, 999)

	assert.Nil(t, stats)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateLinkStatus_EvictsCache(t *testing.T) {
	ctx := context.Background()
	mockLinks := new(MockLinkRepository)
	mockCache := new(MockCache)
	service := newTestService(mockLinks, new(MockClickRepository), new(MockStatsRepository), mockCache, new(MockGeoResolver))

	updated := &domain.Link{ID: 5, UserID: 7, Slug: strPtr("f"), TargetURL: "https://example.com", IsActive: false}
	mockLinks.On("UpdateStatus", ctx, int64(7), int64(5), false).Return(updated, nil)
	mockCache.On("DeleteLink", ctx, "f").Return(nil)

	link, err := service.UpdateLinkStatus(ctx, 7, 5, false)

	require.NoError(t, err)
	assert.False(t, link.IsActive)
	mockCache.AssertExpectations(t)
}
