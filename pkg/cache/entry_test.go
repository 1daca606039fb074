package cache

import (
	"net/http"
	"testing"
	"time"
)

func TestEntry_IsExpired(t *testing.T) {
	tests := []struct {
		name    string
		expires time.Time
		want    bool
	}{
		{
			name:    "expired entry",
			expires: time.Now().Add(-1 * time.Hour),
			want:    true,
		},
		{
			name:    "valid entry",
			expires: time.Now().Add(1 * time.Hour),
			want:    false,
		},
		{
			name:    "just expired",
			expires: time.Now().Add(-1 * time.Second),
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &Entry{
				Expires: tt.expires,
			}
			if got := entry.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntry_TTL(t *testing.T) {
	t.Run("future expiry", func(t *testing.T) {
		entry := &Entry{Expires: time.Now().Add(30 * time.Second)}
		ttl := entry.TTL()
		if ttl <= 0 || ttl > 30*time.Second {
			t.Errorf("TTL() = %v, want (0, 30s]", ttl)
		}
	})

	t.Run("expired returns zero", func(t *testing.T) {
		entry := &Entry{Expires: time.Now().Add(-1 * time.Minute)}
		if ttl := entry.TTL(); ttl != 0 {
			t.Errorf("TTL() = %v, want 0", ttl)
		}
	})
}

func TestNewEntry(t *testing.T) {
	headers := http.Header{}
	headers.Set("ETag", `W/"abc123"`)
	headers.Set("Cache-Control", "private, max-age=60")
	headers.Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")

	body := []byte(`{"login":"octocat"}`)
	entry := NewEntry(http.StatusOK, headers, body)

	if string(entry.Data) != string(body) {
		t.Error("Data not preserved")
	}
	if entry.ETag != `W/"abc123"` {
		t.Errorf("ETag = %q", entry.ETag)
	}
	if entry.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d", entry.StatusCode)
	}
	if entry.LastModified.IsZero() {
		t.Error("LastModified not parsed")
	}

	ttl := entry.TTL()
	if ttl <= 55*time.Second || ttl > 60*time.Second {
		t.Errorf("TTL() = %v, want ~60s from max-age", ttl)
	}
}

func TestMaxAge(t *testing.T) {
	tests := []struct {
		name         string
		cacheControl string
		want         time.Duration
	}{
		{
			name:         "max-age directive",
			cacheControl: "private, max-age=300",
			want:         300 * time.Second,
		},
		{
			name:         "no header falls back to default",
			cacheControl: "",
			want:         DefaultTTL,
		},
		{
			name:         "no-store is uncacheable",
			cacheControl: "no-store",
			want:         0,
		},
		{
			name:         "no-cache is uncacheable",
			cacheControl: "no-cache, max-age=60",
			want:         0,
		},
		{
			name:         "unparseable max-age falls back",
			cacheControl: "max-age=banana",
			want:         DefaultTTL,
		},
		{
			name:         "zero max-age",
			cacheControl: "max-age=0",
			want:         0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			if tt.cacheControl != "" {
				headers.Set("Cache-Control", tt.cacheControl)
			}
			if got := maxAge(headers); got != tt.want {
				t.Errorf("maxAge() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanRevalidate(t *testing.T) {
	tests := []struct {
		name  string
		entry *Entry
		want  bool
	}{
		{
			name:  "nil entry",
			entry: nil,
			want:  false,
		},
		{
			name:  "etag present",
			entry: &Entry{ETag: `"abc"`},
			want:  true,
		},
		{
			name:  "last-modified present",
			entry: &Entry{LastModified: time.Now()},
			want:  true,
		},
		{
			name:  "neither present",
			entry: &Entry{},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanRevalidate(tt.entry); got != tt.want {
				t.Errorf("CanRevalidate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAddConditionalHeaders(t *testing.T) {
	t.Run("etag preferred", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
		entry := &Entry{ETag: `"abc"`, LastModified: time.Now()}

		AddConditionalHeaders(req, entry)

		if got := req.Header.Get("If-None-Match"); got != `"abc"` {
			t.Errorf("If-None-Match = %q", got)
		}
		if req.Header.Get("If-Modified-Since") != "" {
			t.Error("If-Modified-Since must not be set when ETag is present")
		}
	})

	t.Run("last-modified fallback", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
		entry := &Entry{LastModified: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}

		AddConditionalHeaders(req, entry)

		if req.Header.Get("If-Modified-Since") == "" {
			t.Error("If-Modified-Since not set")
		}
	})

	t.Run("nil entry is a no-op", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
		AddConditionalHeaders(req, nil)
		if len(req.Header.Get("If-None-Match")) != 0 {
			t.Error("Headers must not be set for nil entry")
		}
	})
}
