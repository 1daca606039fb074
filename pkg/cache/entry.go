// Package cache provides an optional Redis-backed cache for GitHub REST
// responses with ETag support for conditional requests.
package cache

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultTTL is the fallback TTL when no usable Cache-Control header is
// present. GitHub's REST API advertises max-age=60 on most endpoints.
const DefaultTTL = 60 * time.Second

// Entry represents a cached REST response.
type Entry struct {
	// Data is the response body.
	Data []byte `json:"data"`

	// ETag for conditional requests (If-None-Match).
	ETag string `json:"etag"`

	// Expires is when the cache entry becomes stale, derived from
	// Cache-Control max-age.
	Expires time.Time `json:"expires"`

	// LastModified is the Last-Modified response header, if any.
	LastModified time.Time `json:"last_modified"`

	// StatusCode is the HTTP status code of the cached response.
	StatusCode int `json:"status_code"`

	// CachedAt is when we cached this response.
	CachedAt time.Time `json:"cached_at"`
}

// NewEntry builds a cache entry from a response's status, headers, and body.
func NewEntry(statusCode int, headers http.Header, body []byte) *Entry {
	now := time.Now()
	entry := &Entry{
		Data:       body,
		ETag:       headers.Get("ETag"),
		StatusCode: statusCode,
		CachedAt:   now,
		Expires:    now.Add(maxAge(headers)),
	}

	if lastModStr := headers.Get("Last-Modified"); lastModStr != "" {
		if lastMod, err := http.ParseTime(lastModStr); err == nil {
			entry.LastModified = lastMod
		}
	}

	return entry
}

// maxAge extracts the max-age directive from Cache-Control.
// Returns DefaultTTL when the header is absent or unparseable, and 0 when
// the response is explicitly uncacheable.
func maxAge(headers http.Header) time.Duration {
	cc := headers.Get("Cache-Control")
	if cc == "" {
		return DefaultTTL
	}

	for _, directive := range strings.Split(cc, ",") {
		directive = strings.TrimSpace(directive)
		if directive == "no-store" || directive == "no-cache" {
			return 0
		}
		if after, ok := strings.CutPrefix(directive, "max-age="); ok {
			if seconds, err := strconv.Atoi(after); err == nil && seconds >= 0 {
				return time.Duration(seconds) * time.Second
			}
		}
	}

	return DefaultTTL
}

// IsExpired returns true if the cache entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// CanRevalidate determines whether a conditional request can be made for
// this entry (an ETag or Last-Modified value is available).
func CanRevalidate(entry *Entry) bool {
	if entry == nil {
		return false
	}
	return entry.ETag != "" || !entry.LastModified.IsZero()
}

// AddConditionalHeaders adds If-None-Match (ETag) or If-Modified-Since
// headers to the request. ETag is preferred when both are present.
func AddConditionalHeaders(req *http.Request, entry *Entry) {
	if entry == nil || req == nil {
		return
	}

	if entry.ETag != "" {
		req.Header.Set("If-None-Match", entry.ETag)
	} else if !entry.LastModified.IsZero() {
		req.Header.Set("If-Modified-Since", entry.LastModified.Format(http.TimeFormat))
	}
}
