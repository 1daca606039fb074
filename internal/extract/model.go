// Package extract pulls organization membership and contribution history
// out of the GitHub API.
package extract

import "time"

// Member is one organization member and the enrichment attached to them as
// the pipeline progresses. Fields start nil and are filled in by
// EnrichJoinDates and EnrichContributions; a member whose enrichment failed
// keeps nil fields and still flows through.
type Member struct {
	Login string `json:"login"`
	Name  string `json:"name,omitempty"`

	// JoinedAt is when the member joined the organization. Nil when the
	// membership lookup failed or returned no date.
	JoinedAt *time.Time `json:"joined_at,omitempty"`

	// First and Tenth reference the member's first and tenth pull request
	// to repositories owned by the organization, in creation order.
	First *ContributionRef `json:"first_pr,omitempty"`
	Tenth *ContributionRef `json:"tenth_pr,omitempty"`

	// Contributions holds the member's org-owned pull requests in
	// creation order, capped at the configured limit.
	Contributions []Contribution `json:"contributions,omitempty"`
}

// ContributionRef is a lightweight pointer to a single pull request.
type ContributionRef struct {
	Number    int       `json:"number"`
	CreatedAt time.Time `json:"created_at"`
	URL       string    `json:"url"`
}

// Contribution is one pull request authored by a member.
type Contribution struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	Repo      string    `json:"repo"`
	Owner     string    `json:"owner"`
	URL       string    `json:"url"`
}
