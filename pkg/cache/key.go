package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key represents a unique identifier for a cached REST response.
type Key struct {
	// Endpoint is the REST endpoint path (e.g., "orgs/acme/memberships/octocat").
	Endpoint string

	// QueryParams are the request's query parameters.
	QueryParams url.Values
}

// String generates a deterministic cache key string.
// Format: gh:endpoint:query1=val1:query2=val2
//
// Example:
//
//	gh:orgs/acme/memberships/octocat
func (k Key) String() string {
	parts := []string{"gh"}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Query params sorted for determinism.
	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.QueryParams.Get(key)))
		}
	}

	return strings.Join(parts, ":")
}
