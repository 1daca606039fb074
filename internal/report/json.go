package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/orgpulse/orgpulse/internal/stats"
	"github.com/orgpulse/orgpulse/internal/transform"
)

// document is the JSON report envelope.
type document struct {
	Org         string               `json:"org"`
	GeneratedAt time.Time            `json:"generated_at"`
	Stats       stats.Report         `json:"stats"`
	Members     []transform.Enriched `json:"members"`
}

// WriteJSON writes the full report document and returns the file path.
func (w *Writer) WriteJSON(report stats.Report, members []transform.Enriched) (string, error) {
	path, err := w.path("report", "json")
	if err != nil {
		return "", err
	}

	doc := document{
		Org:         w.org,
		GeneratedAt: time.Now().UTC(),
		Stats:       report,
		Members:     members,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	w.logger.Info().Str("path", path).Msg("Wrote JSON report")
	return path, nil
}
