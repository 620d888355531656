package http

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// clientIP extracts the client IP address from the request, preferring
// proxy headers over the raw peer address.
func clientIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs, take the first one
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		ips := strings.Split(forwarded, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// referrerHost extracts the bare host from the referring page. The standard
// (misspelled) Referer header wins over the occasionally seen Referrer form.
func referrerHost(r *http.Request) string {
	ref := r.Header.Get("Referer")
	if ref == "" {
		ref = r.Header.Get("Referrer")
	}
	if ref == "" {
		return ""
	}

	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
