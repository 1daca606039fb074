package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/orgpulse/orgpulse/internal/transform"
)

// Column names match the JSON field names so the two outputs join by name.
var csvHeader = []string{
	"login", "name", "joined_at",
	"first_pr_number", "first_pr_at", "days_to_first_pr", "hours_to_first_pr",
	"tenth_pr_number", "tenth_pr_at", "days_to_tenth_pr", "hours_to_tenth_pr",
}

// WriteCSV writes one row per member and returns the file path. Missing
// values stay empty so the file loads cleanly into spreadsheet tools.
func (w *Writer) WriteCSV(members []transform.Enriched) (string, error) {
	path, err := w.path("members", "csv")
	if err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(csvHeader); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}

	for _, m := range members {
		row := []string{
			m.Login,
			m.Name,
			formatTime(m.JoinedAt),
		}
		if m.First != nil {
			row = append(row, strconv.Itoa(m.First.Number), m.First.CreatedAt.Format(time.RFC3339))
		} else {
			row = append(row, "", "")
		}
		row = append(row, formatFloat(m.DaysToFirst), formatFloat(m.HoursToFirst))
		if m.Tenth != nil {
			row = append(row, strconv.Itoa(m.Tenth.Number), m.Tenth.CreatedAt.Format(time.RFC3339))
		} else {
			row = append(row, "", "")
		}
		row = append(row, formatFloat(m.DaysToTenth), formatFloat(m.HoursToTenth))

		if err := cw.Write(row); err != nil {
			return "", fmt.Errorf("write csv row for %s: %w", m.Login, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}

	w.logger.Info().Str("path", path).Int("members", len(members)).Msg("Wrote member CSV")
	return path, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', 2, 64)
}
