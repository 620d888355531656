package service

import (
	"context"
	"fmt"

	"linkpulse/internal/domain"
	"linkpulse/internal/metrics"
)

const dashboardLinksLimit = 100

// Dashboard aggregates the owner's analytics for the requested window:
// KPI cards with previous-period comparisons, a clicks-over-time sparkline,
// the country breakdown, and the per-link table.
func (s *LinkService) Dashboard(ctx context.Context, userID int64, win domain.Window) (*domain.Dashboard, error) {
	if err := win.Validate(); err != nil {
		return nil, err
	}

	metrics.RecordDashboardRequest()

	kpis, err := s.buildKPIs(ctx, userID, win)
	if err != nil {
		return nil, err
	}

	sparkline, err := s.stats.ClicksTimeSeries(ctx, userID, win, domain.GranularityFor(win))
	if err != nil {
		return nil, fmt.Errorf("failed to build time series: %w", err)
	}

	countries, err := s.buildCountries(ctx, userID, win)
	if err != nil {
		return nil, err
	}

	links, err := s.buildLinkRows(ctx, userID, win)
	if err != nil {
		return nil, err
	}

	return &domain.Dashboard{
		KPIs:      kpis,
		Sparkline: sparkline,
		Countries: countries,
		Links:     links,
	}, nil
}

func (s *LinkService) buildKPIs(ctx context.Context, userID int64, win domain.Window) (domain.KPIData, error) {
	totalClicks, err := s.stats.TotalClicks(ctx, userID, &win)
	if err != nil {
		return domain.KPIData{}, fmt.Errorf("failed to count clicks: %w", err)
	}
	totalLinks, err := s.stats.TotalLinks(ctx, userID)
	if err != nil {
		return domain.KPIData{}, fmt.Errorf("failed to count links: %w", err)
	}
	uniqueVisitors, err := s.stats.UniqueVisitors(ctx, userID, &win)
	if err != nil {
		return domain.KPIData{}, fmt.Errorf("failed to count visitors: %w", err)
	}

	prev := win.Previous()
	prevClicks, err := s.stats.TotalClicks(ctx, userID, &prev)
	if err != nil {
		return domain.KPIData{}, fmt.Errorf("failed to count previous clicks: %w", err)
	}
	prevVisitors, err := s.stats.UniqueVisitors(ctx, userID, &prev)
	if err != nil {
		return domain.KPIData{}, fmt.Errorf("failed to count previous visitors: %w", err)
	}

	return domain.KPIData{
		TotalClicks:                  totalClicks,
		TotalLinks:                   totalLinks,
		UniqueVisitors:               uniqueVisitors,
		PreviousPeriodClicks:         prevClicks,
		PreviousPeriodLinks:          totalLinks,
		PreviousPeriodUniqueVisitors: prevVisitors,
		ClicksChangePercent:          domain.DeltaPercent(totalClicks, prevClicks),
		VisitorsChangePercent:        domain.DeltaPercent(uniqueVisitors, prevVisitors),
	}, nil
}

func (s *LinkService) buildCountries(ctx context.Context, userID int64, win domain.Window) ([]domain.CountryStat, error) {
	counts, err := s.stats.ClicksByCountry(ctx, userID, &win)
	if err != nil {
		return nil, fmt.Errorf("failed to group clicks by country: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c.Clicks
	}

	out := make([]domain.CountryStat, 0, len(counts))
	for _, c := range counts {
		var pct float64
		if total > 0 {
			pct = float64(c.Clicks) / float64(total) * 100
		}
		out = append(out, domain.CountryStat{
			CountryCode:    c.CountryCode,
			CountryName:    CountryName(c.CountryCode),
			Clicks:         c.Clicks,
			UniqueVisitors: c.UniqueVisitors,
			Percentage:     pct,
		})
	}
	return out, nil
}

func (s *LinkService) buildLinkRows(ctx context.Context, userID int64, win domain.Window) ([]domain.LinkRow, error) {
	links, err := s.links.ListByOwner(ctx, userID, dashboardLinksLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	if len(links) == 0 {
		return []domain.LinkRow{}, nil
	}

	ids := make([]int64, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.ID)
	}
	visitors, err := s.stats.UniqueVisitorsPerLink(ctx, ids, &win)
	if err != nil {
		return nil, fmt.Errorf("failed to count visitors per link: %w", err)
	}

	rows := make([]domain.LinkRow, 0, len(links))
	for _, l := range links {
		rows = append(rows, domain.LinkRow{
			ID:             l.ID,
			ShortURL:       s.ShortURL(l),
			LongURL:        l.TargetURL,
			Status:         l.Status(),
			Clicks:         l.ClickCount,
			UniqueVisitors: visitors[l.ID],
			LastClicked:    l.LastClickedAt,
			Created:        l.CreatedAt,
		})
	}
	return rows, nil
}

// ShortURL renders the public short URL for a link. Links whose slug has not
// been assigned yet render as an empty string.
func (s *LinkService) ShortURL(l *domain.Link) string {
	if l.Slug == nil {
		return ""
	}
	return s.baseURL + "/" + *l.Slug
}
