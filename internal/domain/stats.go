package domain

import (
	"fmt"
	"time"
)

// Window is a half-open time range [Start, End) used to scope aggregates.
type Window struct {
	Start time.Time
	End   time.Time
}

// Validate rejects malformed ranges. A malformed range is an invalid-input
// error: there is no safe default to aggregate over.
func (w Window) Validate() error {
	if !w.Start.Before(w.End) {
		return fmt.Errorf("%w: window start must be before end", ErrInvalidInput)
	}
	return nil
}

// Duration returns End - Start.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Previous returns the immediately preceding window of equal duration,
// [Start-(End-Start), Start).
func (w Window) Previous() Window {
	d := w.Duration()
	return Window{Start: w.Start.Add(-d), End: w.Start}
}

// Granularity is the bucket width of a time series.
type Granularity string

const (
	GranularityHour  Granularity = "hour"
	GranularityDay   Granularity = "day"
	GranularityMonth Granularity = "month"
)

// GranularityFor picks the bucket width for a window: up to one day is
// bucketed hourly, up to thirty days daily, anything longer monthly.
func GranularityFor(w Window) Granularity {
	d := w.Duration()
	switch {
	case d <= 24*time.Hour:
		return GranularityHour
	case d <= 30*24*time.Hour:
		return GranularityDay
	default:
		return GranularityMonth
	}
}

// DeltaPercent computes the period-over-period change as a percentage.
// A zero previous value maps to 100 when anything grew from nothing and 0
// otherwise, so the dashboard never divides by zero.
func DeltaPercent(current, previous int64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100.0
		}
		return 0.0
	}
	return float64(current-previous) / float64(previous) * 100.0
}

// TimePoint is one bucket of a click time series. Timestamp is the canonical
// UTC ISO-8601 bucket start, identical across storage dialects.
type TimePoint struct {
	Timestamp string `json:"timestamp"`
	Value     int64  `json:"value"`
}

// CountryCount is a raw grouped row from storage.
type CountryCount struct {
	CountryCode    string
	Clicks         int64
	UniqueVisitors int64
}

// CountryStat is a country entry of the dashboard payload.
type CountryStat struct {
	CountryCode    string  `json:"country_code"`
	CountryName    string  `json:"country_name"`
	Clicks         int64   `json:"clicks"`
	UniqueVisitors int64   `json:"unique_visitors"`
	Percentage     float64 `json:"percentage"`
}

// KPIData carries the dashboard headline metrics for the current and the
// immediately preceding period. Link totals are not period-sensitive and are
// reported identically for both.
type KPIData struct {
	TotalClicks                  int64   `json:"total_clicks"`
	TotalLinks                   int64   `json:"total_links"`
	UniqueVisitors               int64   `json:"unique_visitors"`
	PreviousPeriodClicks         int64   `json:"previous_period_clicks"`
	PreviousPeriodLinks          int64   `json:"previous_period_links"`
	PreviousPeriodUniqueVisitors int64   `json:"previous_period_unique_visitors"`
	ClicksChangePercent          float64 `json:"clicks_change_percent"`
	VisitorsChangePercent        float64 `json:"visitors_change_percent"`
}

// LinkRow is one row of the dashboard links table.
type LinkRow struct {
	ID             int64      `json:"id"`
	ShortURL       string     `json:"short_url"`
	LongURL        string     `json:"long_url"`
	Status         string     `json:"status"`
	Clicks         int64      `json:"clicks"`
	UniqueVisitors int64      `json:"unique_visitors"`
	LastClicked    *time.Time `json:"last_clicked"`
	Created        time.Time  `json:"created"`
}

// Dashboard is the composed analytics payload for one owner and window.
type Dashboard struct {
	KPIs      KPIData       `json:"kpis"`
	Sparkline []TimePoint   `json:"sparkline_data"`
	Countries []CountryStat `json:"countries"`
	Links     []LinkRow     `json:"links"`
}
