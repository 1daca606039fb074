package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/orgpulse/orgpulse/pkg/fanout"
	"github.com/orgpulse/orgpulse/pkg/github"
	"github.com/orgpulse/orgpulse/pkg/pagination"
)

// pullRequestsQuery walks a user's pull requests oldest-first. The walk is
// global history; org filtering happens client-side because the API cannot
// filter a user's pullRequests connection by repository owner.
const pullRequestsQuery = `
query($login: String!, $cursor: String) {
  user(login: $login) {
    pullRequests(first: 100, orderBy: {field: CREATED_AT, direction: ASC}, after: $cursor) {
      nodes {
        number
        title
        createdAt
        url
        repository {
          name
          owner {
            login
          }
        }
      }
      pageInfo {
        endCursor
        hasNextPage
      }
    }
  }
}`

// contributionLimit is how many org-owned pull requests to keep per member
// when the caller passes 0. Ten is enough for first and tenth.
const contributionLimit = 10

type pullRequestPage struct {
	User *struct {
		PullRequests *struct {
			Nodes []struct {
				Number     int    `json:"number"`
				Title      string `json:"title"`
				CreatedAt  string `json:"createdAt"`
				URL        string `json:"url"`
				Repository *struct {
					Name  string `json:"name"`
					Owner struct {
						Login string `json:"login"`
					} `json:"owner"`
				} `json:"repository"`
			} `json:"nodes"`
			PageInfo *struct {
				EndCursor   string `json:"endCursor"`
				HasNextPage bool   `json:"hasNextPage"`
			} `json:"pageInfo"`
		} `json:"pullRequests"`
	} `json:"user"`
}

// FetchContributions returns a member's pull requests to repositories owned
// by org, oldest first, capped at limit. The walk stops as soon as the
// limit is reached. A user the API no longer knows yields zero
// contributions, not an error.
func (e *Extractor) FetchContributions(ctx context.Context, org, login string, limit int) ([]Contribution, error) {
	if limit <= 0 {
		limit = contributionLimit
	}

	matched := 0
	contributions, err := pagination.Collect(ctx, "pull-requests:"+login, func(ctx context.Context, cursor string) (pagination.Page[Contribution], error) {
		variables := map[string]any{"login": login}
		if cursor != "" {
			variables["cursor"] = cursor
		}

		data, err := e.client.GraphQL(ctx, pullRequestsQuery, variables)
		if err != nil {
			return pagination.Page[Contribution]{}, err
		}

		var page pullRequestPage
		if err := json.Unmarshal(data, &page); err != nil {
			return pagination.Page[Contribution]{}, fmt.Errorf("decode pull requests page: %w", pagination.ErrMalformedPage)
		}
		if page.User == nil {
			e.logger.Warn().Str("login", login).Msg("User not found, treating as zero contributions")
			return pagination.Page[Contribution]{}, nil
		}
		if page.User.PullRequests == nil || page.User.PullRequests.PageInfo == nil {
			return pagination.Page[Contribution]{}, fmt.Errorf("pull requests page missing connection: %w", pagination.ErrMalformedPage)
		}

		conn := page.User.PullRequests
		items := make([]Contribution, 0, len(conn.Nodes))
		for _, node := range conn.Nodes {
			if node.Repository == nil || !strings.EqualFold(node.Repository.Owner.Login, org) {
				continue
			}

			createdAt, err := parseTimestamp(node.CreatedAt)
			if err != nil {
				return pagination.Page[Contribution]{}, fmt.Errorf("pull request %d timestamp: %w", node.Number, pagination.ErrMalformedPage)
			}

			items = append(items, Contribution{
				Number:    node.Number,
				Title:     node.Title,
				CreatedAt: createdAt,
				Repo:      node.Repository.Name,
				Owner:     node.Repository.Owner.Login,
				URL:       node.URL,
			})
			matched++
			if matched >= limit {
				break
			}
		}

		return pagination.Page[Contribution]{
			Items:     items,
			EndCursor: conn.PageInfo.EndCursor,
			HasNext:   conn.PageInfo.HasNextPage && matched < limit,
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch contributions of %s: %w", login, err)
	}

	return contributions, nil
}

// EnrichContributions resolves each member's org contributions concurrently
// and attaches the first and tenth references. A member with no matching
// pull requests comes back unmodified.
func (e *Extractor) EnrichContributions(ctx context.Context, org string, members []Member, limit int) ([]Member, error) {
	results := fanout.Run(ctx, "contributions", members, e.workers, func(ctx context.Context, m Member) (Member, error) {
		prs, err := e.FetchContributions(ctx, org, m.Login, limit)
		if err != nil {
			return m, err
		}
		if len(prs) == 0 {
			return m, nil
		}

		m.Contributions = prs
		m.First = refOf(prs[0])
		if len(prs) >= 10 {
			m.Tenth = refOf(prs[9])
		}
		return m, nil
	})

	return e.collect(org, "contributions", results)
}

func refOf(c Contribution) *ContributionRef {
	return &ContributionRef{
		Number:    c.Number,
		CreatedAt: c.CreatedAt,
		URL:       c.URL,
	}
}

func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

func isAuthErr(err error) bool {
	return errors.Is(err, github.ErrAuthentication)
}
