// Command orgpulse measures onboarding velocity for a GitHub organization:
// for every member, the time from joining to their first and tenth pull
// request against org-owned repositories.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/orgpulse/orgpulse/internal/config"
	"github.com/orgpulse/orgpulse/internal/extract"
	"github.com/orgpulse/orgpulse/internal/report"
	"github.com/orgpulse/orgpulse/internal/stats"
	"github.com/orgpulse/orgpulse/internal/transform"
	"github.com/orgpulse/orgpulse/pkg/cache"
	"github.com/orgpulse/orgpulse/pkg/github"
	"github.com/orgpulse/orgpulse/pkg/logging"
)

// cohortMonths is the width of the join-date cohorts in the report.
const cohortMonths = 6

var (
	flagOrg     string
	flagToken   string
	flagOutput  string
	flagWorkers int
	flagLimit   int
	flagRedis   string
	flagVerbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "orgpulse",
		Short: "Measure onboarding velocity for a GitHub organization",
		Long: `orgpulse walks an organization's members and, for each, finds the time
from joining the organization to their first and tenth pull request against
repositories the organization owns. It writes a per-member CSV, a JSON
report with distribution statistics, and PNG charts.`,
		RunE: run,
	}

	rootCmd.Flags().StringVar(&flagOrg, "org", "", "organization login to analyze (or GITHUB_ORG)")
	rootCmd.Flags().StringVar(&flagToken, "token", "", "GitHub token (or GITHUB_TOKEN)")
	rootCmd.Flags().StringVar(&flagOutput, "output", "", "output directory (default \"output\")")
	rootCmd.Flags().IntVar(&flagWorkers, "workers", 0, "concurrent per-member lookups (default 5)")
	rootCmd.Flags().IntVar(&flagLimit, "limit", 0, "pull requests to fetch per member (default 10)")
	rootCmd.Flags().StringVar(&flagRedis, "redis", "", "Redis address for response caching (or REDIS_ADDR)")
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if flagOrg != "" {
		cfg.Org = flagOrg
	}
	if flagToken != "" {
		cfg.Token = flagToken
	}
	if flagOutput != "" {
		cfg.OutputDir = flagOutput
	}
	if flagWorkers > 0 {
		cfg.Workers = flagWorkers
	}
	if flagLimit > 0 {
		cfg.ContributionLimit = flagLimit
	}
	if flagRedis != "" {
		cfg.RedisAddr = flagRedis
	}
	if flagVerbose {
		cfg.LogLevel = "debug"
	}

	logging.Setup(logging.Config{Level: logging.LogLevel(cfg.LogLevel), Pretty: true})

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	clientCfg := github.DefaultConfig(cfg.Token)
	clientCfg.Timeout = cfg.RequestTimeout
	clientCfg.MaxRetries = cfg.MaxRetries
	clientCfg.Backoff = cfg.Backoff
	clientCfg.Cache = openCache(ctx, cfg.RedisAddr)

	client, err := github.New(clientCfg)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	start := time.Now()
	ext := extract.New(client, cfg.Workers)

	members, err := ext.FetchMembers(ctx, cfg.Org)
	if err != nil {
		return fmt.Errorf("fetch members: %w", err)
	}
	if len(members) == 0 {
		return fmt.Errorf("organization %s has no visible members", cfg.Org)
	}

	members, err = ext.EnrichJoinDates(ctx, cfg.Org, members)
	if err != nil {
		return fmt.Errorf("enrich join dates: %w", err)
	}

	members, err = ext.EnrichContributions(ctx, cfg.Org, members, cfg.ContributionLimit)
	if err != nil {
		return fmt.Errorf("enrich contributions: %w", err)
	}

	enriched := transform.ComputeDeltas(members)
	rollup := transform.Prepare(enriched)
	statsReport := stats.Build(rollup, cohortMonths)

	writer := report.NewWriter(cfg.OutputDir, cfg.Org)
	if _, err := writer.WriteCSV(enriched); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	if _, err := writer.WriteJSON(statsReport, enriched); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	if _, err := writer.WriteCharts(rollup, statsReport.Periods); err != nil {
		return fmt.Errorf("write charts: %w", err)
	}

	log.Info().
		Str("org", cfg.Org).
		Int("members", len(members)).
		Dur("elapsed", time.Since(start)).
		Msg("Analysis complete")

	printSummary(cfg.Org, statsReport)
	return nil
}

// openCache connects the optional Redis-backed response cache. A
// connection failure disables caching instead of failing the run.
func openCache(ctx context.Context, addr string) *cache.Manager {
	if addr == "" {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("Redis unreachable, running without cache")
		rdb.Close()
		return nil
	}

	log.Info().Str("addr", addr).Msg("Response cache enabled")
	return cache.NewManager(rdb)
}

// printSummary renders the distribution statistics as a terminal table.
func printSummary(org string, r stats.Report) {
	fmt.Printf("\nOnboarding velocity for %s\n", org)
	fmt.Printf("Members: %d  with join date: %d  with first PR: %d (%.0f%%)  with tenth PR: %d (%.0f%%)\n\n",
		r.TotalMembers, r.WithJoinDate, r.WithFirst, r.PctFirst, r.WithTenth, r.PctTenth)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Series", "Count", "Mean", "Median", "P25", "P75", "Min", "Max"})
	table.Append(summaryRow("days to first PR", r.FirstPR))
	table.Append(summaryRow("days to tenth PR", r.TenthPR))
	table.Render()

	if len(r.Periods) == 0 {
		return
	}

	fmt.Println("\nFirst PR by join cohort")
	cohorts := tablewriter.NewWriter(os.Stdout)
	cohorts.SetHeader([]string{"Cohort", "Members", "Count", "Mean", "Median"})
	for _, p := range r.Periods {
		cohorts.Append([]string{
			p.Key,
			strconv.Itoa(p.Members),
			strconv.Itoa(p.FirstPR.Count),
			formatDays(p.FirstPR.Mean, p.FirstPR.Count),
			formatDays(p.FirstPR.Median, p.FirstPR.Count),
		})
	}
	cohorts.Render()
}

func summaryRow(name string, s stats.Summary) []string {
	return []string{
		name,
		strconv.Itoa(s.Count),
		formatDays(s.Mean, s.Count),
		formatDays(s.Median, s.Count),
		formatDays(s.P25, s.Count),
		formatDays(s.P75, s.Count),
		formatDays(s.Min, s.Count),
		formatDays(s.Max, s.Count),
	}
}

func formatDays(v float64, count int) string {
	if count == 0 {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}
