// Package geo resolves coarse country codes from client IPs.
//
// Resolution is best-effort: every failure mode (network, timeout, bad
// status, malformed body, implausible code) yields an absent result and is
// never surfaced to the caller.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"linkpulse/internal/metrics"
)

// DefaultEndpoint is the public ip-api.com base URL.
const DefaultEndpoint = "http://ip-api.com"

// DefaultTimeout bounds the single lookup request.
const DefaultTimeout = 2 * time.Second

// Resolver looks up the country for an IP via an external HTTP service.
// Endpoint and client are injectable so tests can point it at a stub.
type Resolver struct {
	client   *http.Client
	endpoint string
	// loopbackCountry is returned for loopback addresses. Empty means
	// loopback resolves to absent like any other unresolvable input.
	loopbackCountry string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithEndpoint overrides the lookup service base URL.
func WithEndpoint(endpoint string) Option {
	return func(r *Resolver) { r.endpoint = strings.TrimRight(endpoint, "/") }
}

// WithClient overrides the HTTP client, including its timeout.
func WithClient(client *http.Client) Option {
	return func(r *Resolver) { r.client = client }
}

// WithLoopbackCountry sets the placeholder country for loopback addresses.
func WithLoopbackCountry(code string) Option {
	return func(r *Resolver) { r.loopbackCountry = code }
}

// NewResolver creates a resolver with the default endpoint, a 2 second
// timeout and "US" as the loopback placeholder.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		client:          &http.Client{Timeout: DefaultTimeout},
		endpoint:        DefaultEndpoint,
		loopbackCountry: "US",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveCountry returns the 2-letter country code for ip, or nil when it
// cannot be determined. It never returns an error.
//
// Loopback addresses map to the configured placeholder so local development
// still produces country data; private-range addresses are unresolvable by
// any public GeoIP service and map to absent.
func (r *Resolver) ResolveCountry(ctx context.Context, ip string) *string {
	if ip == "" {
		return nil
	}
	if isLoopback(ip) {
		if r.loopbackCountry == "" {
			return nil
		}
		code := r.loopbackCountry
		return &code
	}
	if isPrivate(ip) {
		return nil
	}

	code, err := r.lookup(ctx, ip)
	if err != nil {
		metrics.RecordGeoLookupFailure()
		return nil
	}
	return &code
}

// lookup issues the single bounded GET, requesting only the countryCode
// field.
func (r *Resolver) lookup(ctx context.Context, ip string) (string, error) {
	url := fmt.Sprintf("%s/json/%s?fields=countryCode", r.endpoint, ip)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("geo lookup status %d", resp.StatusCode)
	}

	var body struct {
		CountryCode string `json:"countryCode"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}

	if len(body.CountryCode) != 2 {
		return "", fmt.Errorf("geo lookup returned %q, want 2-letter code", body.CountryCode)
	}
	return strings.ToUpper(body.CountryCode), nil
}

func isLoopback(ip string) bool {
	if ip == "localhost" {
		return true
	}
	parsed := net.ParseIP(ip)
	return parsed != nil && parsed.IsLoopback()
}

func isPrivate(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		// Not an IP at all; the lookup service cannot resolve it either,
		// but let the request fail there rather than guessing here.
		return false
	}
	return parsed.IsPrivate() || parsed.IsLinkLocalUnicast() || parsed.IsLinkLocalMulticast()
}
