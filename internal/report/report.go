// Package report writes pipeline output: per-member CSV, a JSON report,
// and distribution charts.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Writer produces the output files of one run. All files share a run
// timestamp so repeated runs never overwrite each other.
type Writer struct {
	dir    string
	org    string
	stamp  string
	logger zerolog.Logger
}

// NewWriter creates a Writer rooted at dir. The directory is created on
// first write.
func NewWriter(dir, org string) *Writer {
	return &Writer{
		dir:    dir,
		org:    org,
		stamp:  time.Now().Format("20060102_150405"),
		logger: log.With().Str("component", "report").Logger(),
	}
}

// path builds an output file path like
// out/acme_members_20240101_120000.csv, creating the directory as needed.
func (w *Writer) path(kind, ext string) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	name := fmt.Sprintf("%s_%s_%s.%s", w.org, kind, w.stamp, ext)
	return filepath.Join(w.dir, name), nil
}
