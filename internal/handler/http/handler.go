package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"linkpulse/internal/domain"
	"linkpulse/internal/metrics"
	"linkpulse/internal/service"
)

// LinkService defines the service methods needed by the handler. Using an
// interface instead of the concrete type allows for easy mocking in tests.
type LinkService interface {
	CreateLink(ctx context.Context, userID int64, targetURL string) (*domain.Link, error)
	Resolve(ctx context.Context, slug string) (*domain.Link, error)
	RecordClick(ctx context.Context, link *domain.Link, cc service.ClickContext) error
	ListLinks(ctx context.Context, userID int64, limit, offset int) ([]*domain.Link, error)
	GetLinkStats(ctx context.Context, userID, linkID int64) (*service.LinkStats, error)
	UpdateLinkStatus(ctx context.Context, userID, linkID int64, active bool) (*domain.Link, error)
	Dashboard(ctx context.Context, userID int64, win domain.Window) (*domain.Dashboard, error)
	ShortURL(l *domain.Link) string
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	links  LinkService
	logger *slog.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(links LinkService, logger *slog.Logger) *Handler {
	return &Handler{
		links:  links,
		logger: logger,
	}
}

// Request/Response DTOs, kept separate from domain models so the API
// contract stays stable.

type CreateLinkRequest struct {
	TargetURL string `json:"target_url"`
}

type UpdateStatusRequest struct {
	IsActive *bool `json:"is_active"`
}

type LinkResponse struct {
	ID            int64      `json:"id"`
	Slug          *string    `json:"slug"`
	ShortURL      string     `json:"short_url"`
	TargetURL     string     `json:"target_url"`
	Status        string     `json:"status"`
	ClickCount    int64      `json:"click_count"`
	CreatedAt     time.Time  `json:"created_at"`
	LastClickedAt *time.Time `json:"last_clicked_at,omitempty"`
}

type ClickInfo struct {
	ClickedAt      time.Time `json:"clicked_at"`
	ReferrerHost   *string   `json:"referrer_host,omitempty"`
	Country        *string   `json:"country,omitempty"`
	DeviceCategory *string   `json:"device_category,omitempty"`
	BrowserName    *string   `json:"browser_name,omitempty"`
	OSName         *string   `json:"os_name,omitempty"`
}

type LinkStatsResponse struct {
	Link           LinkResponse `json:"link"`
	ClicksLast24h  int64        `json:"clicks_last_24h"`
	UniqueVisitors int64        `json:"unique_visitors"`
	RecentClicks   []ClickInfo  `json:"recent_clicks"`
}

func (h *Handler) linkResponse(link *domain.Link) LinkResponse {
	return LinkResponse{
		ID:            link.ID,
		Slug:          link.Slug,
		ShortURL:      h.links.ShortURL(link),
		TargetURL:     link.TargetURL,
		Status:        link.Status(),
		ClickCount:    link.ClickCount,
		CreatedAt:     link.CreatedAt,
		LastClickedAt: link.LastClickedAt,
	}
}

// ownerID extracts the authenticated owner from the X-User-ID header.
// Authentication proper is handled upstream; the header is the trusted
// identity the proxy injects.
func ownerID(r *http.Request) (int64, bool) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// respondServiceError maps domain errors to HTTP status codes.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "link not found")
	default:
		h.logger.Error("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// CreateLink handles POST /api/v1/links
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing or invalid X-User-ID header")
		return
	}

	var req CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	defer r.Body.Close()

	if req.TargetURL == "" {
		respondError(w, http.StatusBadRequest, "target_url is required")
		return
	}

	link, err := h.links.CreateLink(r.Context(), userID, req.TargetURL)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusCreated, h.linkResponse(link), "Link created successfully")
}

// ListLinks handles GET /api/v1/links
func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing or invalid X-User-ID header")
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	links, err := h.links.ListLinks(r.Context(), userID, limit, offset)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	out := make([]LinkResponse, 0, len(links))
	for _, l := range links {
		out = append(out, h.linkResponse(l))
	}
	respondSuccess(w, http.StatusOK, out, "")
}

// LinkStats handles GET /api/v1/links/{id}/stats
func (h *Handler) LinkStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing or invalid X-User-ID header")
		return
	}

	linkID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid link id")
		return
	}

	stats, err := h.links.GetLinkStats(r.Context(), userID, linkID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	recent := make([]ClickInfo, 0, len(stats.RecentClicks))
	for _, c := range stats.RecentClicks {
		recent = append(recent, ClickInfo{
			ClickedAt:      c.ClickedAt,
			ReferrerHost:   c.ReferrerHost,
			Country:        c.Country,
			DeviceCategory: c.DeviceCategory,
			BrowserName:    c.BrowserName,
			OSName:         c.OSName,
		})
	}

	respondSuccess(w, http.StatusOK, LinkStatsResponse{
		Link:           h.linkResponse(stats.Link),
		ClicksLast24h:  stats.ClicksLast24h,
		UniqueVisitors: stats.UniqueVisitors,
		RecentClicks:   recent,
	}, "")
}

// UpdateStatus handles PATCH /api/v1/links/{id}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing or invalid X-User-ID header")
		return
	}

	linkID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid link id")
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	defer r.Body.Close()

	if req.IsActive == nil {
		respondError(w, http.StatusBadRequest, "is_active is required")
		return
	}

	link, err := h.links.UpdateLinkStatus(r.Context(), userID, linkID, *req.IsActive)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, h.linkResponse(link), "Link status updated")
}

// Dashboard handles GET /api/v1/links/dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing or invalid X-User-ID header")
		return
	}

	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start_date"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "start_date must be an RFC 3339 timestamp")
		return
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end_date"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "end_date must be an RFC 3339 timestamp")
		return
	}

	dash, err := h.links.Dashboard(r.Context(), userID, domain.Window{Start: start.UTC(), End: end.UTC()})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, dash, "")
}

// clickRecordTimeout bounds the background click write, including the
// geolocation lookup it performs.
const clickRecordTimeout = 10 * time.Second

// Redirect handles GET /{slug}
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	if slug == "" {
		respondError(w, http.StatusBadRequest, "short code is required")
		return
	}

	link, err := h.links.Resolve(r.Context(), slug)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			h.logger.Error("resolve failed", "slug", slug, "error", err)
		}
		respondError(w, http.StatusNotFound, "link not found")
		return
	}

	// Capture the click in the background so analytics never delays the
	// redirect. The request context dies with the response, so the write
	// runs under its own deadline.
	cc := service.ClickContext{
		IP:           clientIP(r),
		UserAgent:    r.UserAgent(),
		ReferrerHost: referrerHost(r),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), clickRecordTimeout)
		defer cancel()
		if err := h.links.RecordClick(ctx, link, cc); err != nil {
			h.logger.Error("failed to record click", "slug", slug, "error", err)
		}
	}()

	metrics.RecordRedirect()
	http.Redirect(w, r, link.TargetURL, http.StatusFound)
}

// HealthCheck handles GET /health/live
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
