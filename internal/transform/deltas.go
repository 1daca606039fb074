// Package transform turns raw extraction output into onboarding velocity
// measures: the time between a member joining and their first and tenth
// pull request.
package transform

import (
	"time"

	"github.com/orgpulse/orgpulse/internal/extract"
)

// Enriched is a member with computed onboarding deltas. Delta fields stay
// nil when the inputs they need (join date, the referenced pull request)
// are missing. A delta can be negative: contributing before formally
// joining is common for hires out of the community.
type Enriched struct {
	extract.Member

	DaysToFirst  *float64 `json:"days_to_first_pr,omitempty"`
	HoursToFirst *float64 `json:"hours_to_first_pr,omitempty"`
	DaysToTenth  *float64 `json:"days_to_tenth_pr,omitempty"`
	HoursToTenth *float64 `json:"hours_to_tenth_pr,omitempty"`
}

// ComputeDeltas derives per-member onboarding deltas.
func ComputeDeltas(members []extract.Member) []Enriched {
	out := make([]Enriched, 0, len(members))
	for _, m := range members {
		e := Enriched{Member: m}
		if m.JoinedAt != nil {
			if m.First != nil {
				days, hours := delta(*m.JoinedAt, m.First.CreatedAt)
				e.DaysToFirst, e.HoursToFirst = &days, &hours
			}
			if m.Tenth != nil {
				days, hours := delta(*m.JoinedAt, m.Tenth.CreatedAt)
				e.DaysToTenth, e.HoursToTenth = &days, &hours
			}
		}
		out = append(out, e)
	}
	return out
}

func delta(from, to time.Time) (days, hours float64) {
	d := to.Sub(from)
	return d.Hours() / 24, d.Hours()
}

// Rollup aggregates the enriched members for reporting.
type Rollup struct {
	TotalMembers int
	WithJoinDate int
	WithFirst    int
	WithTenth    int

	// DaysToFirst and DaysToTenth collect the non-nil deltas for the
	// statistics stage.
	DaysToFirst []float64
	DaysToTenth []float64

	Members []Enriched
}

// Prepare builds the rollup over all enriched members.
func Prepare(members []Enriched) Rollup {
	r := Rollup{
		TotalMembers: len(members),
		Members:      members,
	}
	for _, m := range members {
		if m.JoinedAt != nil {
			r.WithJoinDate++
		}
		if m.DaysToFirst != nil {
			r.WithFirst++
			r.DaysToFirst = append(r.DaysToFirst, *m.DaysToFirst)
		}
		if m.DaysToTenth != nil {
			r.WithTenth++
			r.DaysToTenth = append(r.DaysToTenth, *m.DaysToTenth)
		}
	}
	return r
}
