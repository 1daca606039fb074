// Package pagination walks GraphQL cursor-paginated connections.
//
// GitHub's GraphQL API pages connections with pageInfo{endCursor hasNextPage}.
// This package implements the generic walk: start with an empty cursor, feed
// each endCursor back in, stop when hasNextPage is false.
//
// Example usage:
//
//	members, err := pagination.Collect(ctx, "org-members", func(ctx context.Context, cursor string) (pagination.Page[Member], error) {
//		// issue the GraphQL query with $after = cursor
//	})
//
// The collector:
//   - Concatenates items across pages in order
//   - Logs per-page progress at debug level
//   - Treats a malformed page as end-of-data (partial results, nil error)
//   - Returns partial results alongside any other error
package pagination
