package report

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/orgpulse/orgpulse/internal/stats"
	"github.com/orgpulse/orgpulse/internal/transform"
)

const histogramBins = 16

// WriteCharts renders the delta distributions as PNG files and returns the
// paths written. Series with no data are skipped, not errors.
func (w *Writer) WriteCharts(r transform.Rollup, periods []stats.Period) ([]string, error) {
	var paths []string

	if len(r.DaysToFirst) > 0 {
		path, err := w.histogram("first_pr_hist", "Days to First PR", r.DaysToFirst)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	if len(r.DaysToTenth) > 0 {
		path, err := w.histogram("tenth_pr_hist", "Days to Tenth PR", r.DaysToTenth)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	if scatter := joinScatter(r.Members); len(scatter) > 0 {
		path, err := w.scatter("join_vs_first", scatter)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	if withData := cohortsWithData(periods); len(withData) > 0 {
		path, err := w.cohortBars("cohort_first_pr", withData)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	return paths, nil
}

// cohortsWithData drops cohorts without a single first-PR delta; they have
// nothing to plot.
func cohortsWithData(periods []stats.Period) []stats.Period {
	out := make([]stats.Period, 0, len(periods))
	for _, p := range periods {
		if p.FirstPR.Count > 0 {
			out = append(out, p)
		}
	}
	return out
}

// cohortBars renders mean and median days-to-first-PR per join cohort as
// grouped bars.
func (w *Writer) cohortBars(kind string, periods []stats.Period) (string, error) {
	path, err := w.path(kind, "png")
	if err != nil {
		return "", err
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Days to First PR by Join Cohort (%s)", w.org)
	p.X.Label.Text = "join cohort"
	p.Y.Label.Text = "days"

	means := make(plotter.Values, len(periods))
	medians := make(plotter.Values, len(periods))
	labels := make([]string, len(periods))
	for i, period := range periods {
		means[i] = period.FirstPR.Mean
		medians[i] = period.FirstPR.Median
		labels[i] = period.Key
	}

	barWidth := vg.Points(15)

	meanBars, err := plotter.NewBarChart(means, barWidth)
	if err != nil {
		return "", fmt.Errorf("build cohort bars: %w", err)
	}
	meanBars.Color = plotutil.Color(0)
	meanBars.Offset = -barWidth / 2

	medianBars, err := plotter.NewBarChart(medians, barWidth)
	if err != nil {
		return "", fmt.Errorf("build cohort bars: %w", err)
	}
	medianBars.Color = plotutil.Color(1)
	medianBars.Offset = barWidth / 2

	p.Add(meanBars, medianBars)
	p.Legend.Add("mean", meanBars)
	p.Legend.Add("median", medianBars)
	p.Legend.Top = true
	p.NominalX(labels...)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return "", fmt.Errorf("save cohort bars: %w", err)
	}

	w.logger.Info().Str("path", path).Int("cohorts", len(periods)).Msg("Wrote cohort chart")
	return path, nil
}

func (w *Writer) histogram(kind, title string, values []float64) (string, error) {
	path, err := w.path(kind, "png")
	if err != nil {
		return "", err
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s (%s)", title, w.org)
	p.X.Label.Text = "days"
	p.Y.Label.Text = "members"

	h, err := plotter.NewHist(plotter.Values(values), histogramBins)
	if err != nil {
		return "", fmt.Errorf("build histogram %s: %w", kind, err)
	}
	p.Add(h)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return "", fmt.Errorf("save histogram %s: %w", kind, err)
	}

	w.logger.Info().Str("path", path).Msg("Wrote histogram")
	return path, nil
}

// joinScatter pairs join date (unix seconds) with days-to-first for every
// member that has both.
func joinScatter(members []transform.Enriched) plotter.XYs {
	var pts plotter.XYs
	for _, m := range members {
		if m.JoinedAt == nil || m.DaysToFirst == nil {
			continue
		}
		pts = append(pts, plotter.XY{
			X: float64(m.JoinedAt.Unix()),
			Y: *m.DaysToFirst,
		})
	}
	return pts
}

func (w *Writer) scatter(kind string, pts plotter.XYs) (string, error) {
	path, err := w.path(kind, "png")
	if err != nil {
		return "", err
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Join Date vs Days to First PR (%s)", w.org)
	p.X.Label.Text = "joined"
	p.Y.Label.Text = "days to first PR"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}

	s, err := plotter.NewScatter(pts)
	if err != nil {
		return "", fmt.Errorf("build scatter: %w", err)
	}
	p.Add(s)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return "", fmt.Errorf("save scatter: %w", err)
	}

	w.logger.Info().Str("path", path).Msg("Wrote scatter chart")
	return path, nil
}
