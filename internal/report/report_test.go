package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/orgpulse/orgpulse/internal/extract"
	"github.com/orgpulse/orgpulse/internal/stats"
	"github.com/orgpulse/orgpulse/internal/transform"
)

func testMembers() []transform.Enriched {
	joined := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	return transform.ComputeDeltas([]extract.Member{
		{
			Login:    "alice",
			Name:     "Alice",
			JoinedAt: &joined,
			First:    &extract.ContributionRef{Number: 11, CreatedAt: joined.Add(48 * time.Hour), URL: "https://example.com/11"},
			Tenth:    &extract.ContributionRef{Number: 42, CreatedAt: joined.Add(20 * 24 * time.Hour), URL: "https://example.com/42"},
		},
		{
			Login:    "carol",
			Name:     "Carol",
			JoinedAt: &joined,
			First:    &extract.ContributionRef{Number: 7, CreatedAt: joined.Add(5 * 24 * time.Hour), URL: "https://example.com/7"},
			Tenth:    &extract.ContributionRef{Number: 70, CreatedAt: joined.Add(40 * 24 * time.Hour), URL: "https://example.com/70"},
		},
		{Login: "bob"},
	})
}

func TestWriteCSV(t *testing.T) {
	w := NewWriter(t.TempDir(), "acme")

	path, err := w.WriteCSV(testMembers())
	if err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	if !strings.Contains(path, "acme_members_") || !strings.HasSuffix(path, ".csv") {
		t.Errorf("Unexpected file name: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Read CSV failed: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("Expected header + 3 rows, got %d", len(rows))
	}
	if len(rows[0]) != len(csvHeader) {
		t.Errorf("Header has %d columns, want %d", len(rows[0]), len(csvHeader))
	}
	// Delta columns carry the same names as the JSON fields.
	if rows[0][5] != "days_to_first_pr" || rows[0][9] != "days_to_tenth_pr" {
		t.Errorf("Delta column names = %q, %q", rows[0][5], rows[0][9])
	}

	alice := rows[1]
	if alice[0] != "alice" || alice[3] != "11" || alice[5] != "2.00" {
		t.Errorf("alice row wrong: %v", alice)
	}

	bob := rows[3]
	if bob[0] != "bob" || bob[2] != "" || bob[5] != "" {
		t.Errorf("bob row must have empty optional columns: %v", bob)
	}
}

func TestWriteJSON(t *testing.T) {
	members := testMembers()
	rollup := transform.Prepare(members)
	w := NewWriter(t.TempDir(), "acme")

	path, err := w.WriteJSON(stats.Build(rollup, 6), members)
	if err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Report is not valid JSON: %v", err)
	}
	if doc.Org != "acme" {
		t.Errorf("Org = %q, want acme", doc.Org)
	}
	if doc.Stats.TotalMembers != 3 {
		t.Errorf("TotalMembers = %d, want 3", doc.Stats.TotalMembers)
	}
	if len(doc.Members) != 3 {
		t.Errorf("Members = %d, want 3", len(doc.Members))
	}
}

func TestWriteCharts(t *testing.T) {
	members := testMembers()
	rollup := transform.Prepare(members)
	report := stats.Build(rollup, 6)
	w := NewWriter(t.TempDir(), "acme")

	paths, err := w.WriteCharts(rollup, report.Periods)
	if err != nil {
		t.Fatalf("WriteCharts failed: %v", err)
	}
	// First-PR histogram, tenth-PR histogram, scatter, cohort bars.
	if len(paths) != 4 {
		t.Fatalf("Expected 4 charts, got %d: %v", len(paths), paths)
	}
	var sawCohorts bool
	for _, p := range paths {
		if strings.Contains(p, "cohort_first_pr") {
			sawCohorts = true
		}
		info, err := os.Stat(p)
		if err != nil {
			t.Errorf("Chart %s not written: %v", p, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("Chart %s is empty", p)
		}
	}
	if !sawCohorts {
		t.Errorf("Cohort bar chart missing from %v", paths)
	}
}

func TestWriteCharts_NoData(t *testing.T) {
	w := NewWriter(t.TempDir(), "acme")

	paths, err := w.WriteCharts(transform.Rollup{}, nil)
	if err != nil {
		t.Fatalf("WriteCharts failed: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("Expected no charts for empty rollup, got %v", paths)
	}
}

func TestWriteCharts_SkipsEmptyCohorts(t *testing.T) {
	members := testMembers()
	rollup := transform.Prepare(members)
	w := NewWriter(t.TempDir(), "acme")

	// A cohort of members who never opened a PR has nothing to plot.
	periods := []stats.Period{{Key: "2022-07", Members: 4}}

	paths, err := w.WriteCharts(rollup, periods)
	if err != nil {
		t.Fatalf("WriteCharts failed: %v", err)
	}
	for _, p := range paths {
		if strings.Contains(p, "cohort_first_pr") {
			t.Errorf("Cohort chart must be skipped when no cohort has deltas: %v", paths)
		}
	}
}
