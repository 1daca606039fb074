// Package stats computes distribution summaries over onboarding deltas.
package stats

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/orgpulse/orgpulse/internal/transform"
)

// Summary describes one delta distribution in days.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P25    float64 `json:"p25"`
	P75    float64 `json:"p75"`
	StdDev float64 `json:"stddev"`
}

// Summarize computes the distribution summary of a delta series.
// An empty series yields a zero Summary.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	s := Summary{
		Count:  len(sorted),
		Mean:   stat.Mean(sorted, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		P25:    stat.Quantile(0.25, stat.Empirical, sorted, nil),
		P75:    stat.Quantile(0.75, stat.Empirical, sorted, nil),
	}
	if len(sorted) > 1 {
		s.StdDev = stat.StdDev(sorted, nil)
	}
	return s
}

// Report is the full statistics output for one run.
type Report struct {
	TotalMembers int `json:"total_members"`
	WithJoinDate int `json:"with_join_date"`
	WithFirst    int `json:"with_first_pr"`
	WithTenth    int `json:"with_tenth_pr"`

	// PctFirst and PctTenth are the share of members with a first and
	// tenth PR, in percent of the total.
	PctFirst float64 `json:"pct_with_first_pr"`
	PctTenth float64 `json:"pct_with_tenth_pr"`

	FirstPR Summary `json:"first_pr_days"`
	TenthPR Summary `json:"tenth_pr_days"`

	// Periods breaks the first-PR distribution down by join cohort.
	Periods []Period `json:"periods,omitempty"`
}

// Period is one join-date cohort.
type Period struct {
	Key     string  `json:"period"`
	Members int     `json:"members"`
	FirstPR Summary `json:"first_pr_days"`
}

// Build computes the full report over a rollup. cohortMonths sets the
// cohort width for the period breakdown; 6 gives half-year cohorts, 0
// disables the breakdown.
func Build(r transform.Rollup, cohortMonths int) Report {
	report := Report{
		TotalMembers: r.TotalMembers,
		WithJoinDate: r.WithJoinDate,
		WithFirst:    r.WithFirst,
		WithTenth:    r.WithTenth,
		FirstPR:      Summarize(r.DaysToFirst),
		TenthPR:      Summarize(r.DaysToTenth),
	}
	if r.TotalMembers > 0 {
		report.PctFirst = 100 * float64(r.WithFirst) / float64(r.TotalMembers)
		report.PctTenth = 100 * float64(r.WithTenth) / float64(r.TotalMembers)
	}
	if cohortMonths > 0 {
		report.Periods = byPeriod(r.Members, cohortMonths)
	}
	return report
}

// byPeriod groups members into join cohorts of cohortMonths width and
// summarizes each cohort's first-PR deltas. Cohorts come back in
// chronological order, keyed by their start month.
func byPeriod(members []transform.Enriched, cohortMonths int) []Period {
	type bucket struct {
		members int
		deltas  []float64
	}
	buckets := map[string]*bucket{}

	for _, m := range members {
		if m.JoinedAt == nil {
			continue
		}
		month := int(m.JoinedAt.Month())
		start := ((month-1)/cohortMonths)*cohortMonths + 1
		key := fmt.Sprintf("%04d-%02d", m.JoinedAt.Year(), start)

		b := buckets[key]
		if b == nil {
			b = &bucket{}
			buckets[key] = b
		}
		b.members++
		if m.DaysToFirst != nil {
			b.deltas = append(b.deltas, *m.DaysToFirst)
		}
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	periods := make([]Period, 0, len(keys))
	for _, k := range keys {
		periods = append(periods, Period{
			Key:     k,
			Members: buckets[k].members,
			FirstPR: Summarize(buckets[k].deltas),
		})
	}
	return periods
}
