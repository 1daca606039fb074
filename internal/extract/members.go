package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/orgpulse/orgpulse/pkg/fanout"
	"github.com/orgpulse/orgpulse/pkg/github"
	"github.com/orgpulse/orgpulse/pkg/pagination"
)

// membersQuery walks the organization's membersWithRole connection.
const membersQuery = `
query($org: String!, $cursor: String) {
  organization(login: $org) {
    membersWithRole(first: 100, after: $cursor) {
      nodes {
        login
        name
      }
      pageInfo {
        endCursor
        hasNextPage
      }
    }
  }
}`

// Extractor fetches members and contributions for one organization.
type Extractor struct {
	client  *github.Client
	workers int
	logger  zerolog.Logger
}

// New creates an Extractor. workers bounds the per-member fan-out; 0 means
// the fanout package default.
func New(client *github.Client, workers int) *Extractor {
	return &Extractor{
		client:  client,
		workers: workers,
		logger:  log.With().Str("component", "extractor").Logger(),
	}
}

// memberPage mirrors the GraphQL response shape. Pointer fields distinguish
// a missing object from an empty one.
type memberPage struct {
	Organization *struct {
		MembersWithRole *struct {
			Nodes []struct {
				Login string `json:"login"`
				Name  string `json:"name"`
			} `json:"nodes"`
			PageInfo *struct {
				EndCursor   string `json:"endCursor"`
				HasNextPage bool   `json:"hasNextPage"`
			} `json:"pageInfo"`
		} `json:"membersWithRole"`
	} `json:"organization"`
}

// FetchMembers returns all members of the organization. A malformed page
// mid-walk yields the members gathered so far without an error.
func (e *Extractor) FetchMembers(ctx context.Context, org string) ([]Member, error) {
	e.logger.Info().Str("org", org).Msg("Fetching organization members")

	members, err := pagination.Collect(ctx, "org-members", func(ctx context.Context, cursor string) (pagination.Page[Member], error) {
		variables := map[string]any{"org": org}
		if cursor != "" {
			variables["cursor"] = cursor
		}

		data, err := e.client.GraphQL(ctx, membersQuery, variables)
		if err != nil {
			return pagination.Page[Member]{}, err
		}

		var page memberPage
		if err := json.Unmarshal(data, &page); err != nil {
			return pagination.Page[Member]{}, fmt.Errorf("decode members page: %w", pagination.ErrMalformedPage)
		}
		if page.Organization == nil || page.Organization.MembersWithRole == nil || page.Organization.MembersWithRole.PageInfo == nil {
			return pagination.Page[Member]{}, fmt.Errorf("members page missing connection: %w", pagination.ErrMalformedPage)
		}

		conn := page.Organization.MembersWithRole
		items := make([]Member, 0, len(conn.Nodes))
		for _, node := range conn.Nodes {
			items = append(items, Member{Login: node.Login, Name: node.Name})
		}

		return pagination.Page[Member]{
			Items:     items,
			EndCursor: conn.PageInfo.EndCursor,
			HasNext:   conn.PageInfo.HasNextPage,
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch members of %s: %w", org, err)
	}

	e.logger.Info().Str("org", org).Int("members", len(members)).Msg("Fetched organization members")
	return members, nil
}

// FetchJoinDate looks up when a member joined the organization via the REST
// membership endpoint. The second return is false when no date is available.
func (e *Extractor) FetchJoinDate(ctx context.Context, org, login string) (time.Time, bool, error) {
	endpoint := fmt.Sprintf("orgs/%s/memberships/%s", org, login)

	body, err := e.client.Get(ctx, endpoint, nil)
	if err != nil {
		return time.Time{}, false, err
	}

	var membership struct {
		CreatedAt *time.Time `json:"created_at"`
	}
	if err := json.Unmarshal(body, &membership); err != nil {
		return time.Time{}, false, fmt.Errorf("decode membership for %s: %w", login, err)
	}
	if membership.CreatedAt == nil {
		return time.Time{}, false, nil
	}
	return *membership.CreatedAt, true, nil
}

// EnrichJoinDates resolves join dates for all members concurrently. A
// failed lookup leaves that member's JoinedAt nil; auth failure aborts the
// whole batch by surfacing on every result, so the first one is returned.
func (e *Extractor) EnrichJoinDates(ctx context.Context, org string, members []Member) ([]Member, error) {
	results := fanout.Run(ctx, "join-dates", members, e.workers, func(ctx context.Context, m Member) (Member, error) {
		joined, ok, err := e.FetchJoinDate(ctx, org, m.Login)
		if err != nil {
			return m, err
		}
		if ok {
			m.JoinedAt = &joined
		}
		return m, nil
	})

	return e.collect(org, "join date", results)
}

// collect unwraps fan-out results. Authentication failures abort; any other
// per-member failure is logged and the member passes through unmodified.
func (e *Extractor) collect(org, stage string, results []fanout.Result[Member]) ([]Member, error) {
	out := make([]Member, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			if isAuthErr(r.Err) {
				return nil, fmt.Errorf("%s lookup for %s: %w", stage, r.Item.Login, r.Err)
			}
			e.logger.Warn().
				Err(r.Err).
				Str("org", org).
				Str("login", r.Item.Login).
				Msgf("Failed to fetch %s, continuing without it", stage)
		}
		out = append(out, r.Item)
	}
	return out, nil
}
