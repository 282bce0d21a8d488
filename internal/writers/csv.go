package writers

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"swineotype/internal/report"
)

// AppendMergedCSV appends one row per record to path, writing the header
// first when the file does not exist yet. Parent directories are created.
func AppendMergedCSV(path string, recs []report.Record) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("merged csv: %w", err)
		}
	}
	_, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr)

	fh, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("merged csv: %w", err)
	}
	w := csv.NewWriter(fh)
	if fresh {
		if err := w.Write(report.CSVHeader); err != nil {
			fh.Close()
			return err
		}
	}
	for _, r := range recs {
		if err := w.Write(r.CSVRow()); err != nil {
			fh.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		fh.Close()
		return fmt.Errorf("merged csv: %w", err)
	}
	return fh.Close()
}
