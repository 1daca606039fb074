package pagination

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
)

// ErrMalformedPage signals that a page response was structurally invalid
// (missing pageInfo, nil node list). Fetchers return it wrapped so Collect
// can stop walking and keep the items gathered so far.
var ErrMalformedPage = errors.New("malformed page")

// Page is a single cursor-paginated result page.
type Page[T any] struct {
	// Items are the decoded nodes of this page.
	Items []T

	// EndCursor is the opaque cursor passed to fetch the next page.
	EndCursor string

	// HasNext reports whether another page follows.
	HasNext bool
}

// PageFunc fetches a single page. An empty cursor requests the first page.
type PageFunc[T any] func(ctx context.Context, cursor string) (Page[T], error)

// Collect walks a cursor-paginated sequence to exhaustion and returns the
// concatenated items. name labels log output.
//
// A page whose error wraps ErrMalformedPage ends the walk without failing
// the call: the items gathered so far come back with a nil error. Any other
// error comes back alongside the partial items so the caller decides what
// survives.
func Collect[T any](ctx context.Context, name string, fetch PageFunc[T]) ([]T, error) {
	var items []T
	cursor := ""
	page := 0

	for {
		page++
		result, err := fetch(ctx, cursor)
		if err != nil {
			if errors.Is(err, ErrMalformedPage) {
				log.Error().
					Err(err).
					Str("pager", name).
					Int("page", page).
					Int("items_so_far", len(items)).
					Msg("Malformed page, keeping partial results")
				return items, nil
			}
			return items, err
		}

		items = append(items, result.Items...)

		log.Debug().
			Str("pager", name).
			Int("page", page).
			Int("page_items", len(result.Items)).
			Int("total_items", len(items)).
			Bool("has_next", result.HasNext).
			Msg("Fetched page")

		if !result.HasNext {
			return items, nil
		}
		cursor = result.EndCursor
	}
}
