package appadapter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Column names after the rename from the workflow's output.
const (
	ColSample     = "sample"
	ColAppSerovar = "app_serovar"

	srcSample  = "Sample"
	srcSerovar = "Suggested_serovar"
)

// Call is one APP serovar call.
type Call struct {
	Sample  string
	Serovar string
}

// ReadSerovars loads Sample/Suggested_serovar from the workflow's TSV.
func ReadSerovars(path string) ([]Call, error) {
	header, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	si, vi := index(header, srcSample), index(header, srcSerovar)
	if si < 0 || vi < 0 {
		return nil, fmt.Errorf("%s: want columns %s and %s", path, srcSample, srcSerovar)
	}
	calls := make([]Call, 0, len(rows))
	for _, r := range rows {
		calls = append(calls, Call{Sample: cell(r, si), Serovar: cell(r, vi)})
	}
	return calls, nil
}

// MergeSummary outer-joins calls onto the summary at path by sample and
// rewrites it as CSV sorted by sample. An existing app_serovar column is
// replaced. Without an existing file a fresh sample,app_serovar CSV is
// written. merged reports whether an existing file was updated.
func MergeSummary(path string, calls []Call) (merged bool, err error) {
	header, rows, err := readTable(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		header, rows = []string{ColSample, ColAppSerovar}, nil
	case err != nil:
		return false, err
	default:
		merged = true
	}

	si := index(header, ColSample)
	if si < 0 {
		return false, fmt.Errorf("no %q column", ColSample)
	}
	ai := index(header, ColAppSerovar)
	if ai < 0 {
		header = append(header, ColAppSerovar)
		ai = len(header) - 1
	}

	byCall := make(map[string]string, len(calls))
	for _, c := range calls {
		if _, dup := byCall[c.Sample]; !dup {
			byCall[c.Sample] = c.Serovar
		}
	}

	present := make(map[string]bool, len(rows))
	out := make([][]string, 0, len(rows)+len(calls))
	for _, r := range rows {
		row := make([]string, len(header))
		copy(row, r)
		s := row[si]
		present[s] = true
		row[ai] = byCall[s]
		out = append(out, row)
	}
	for _, c := range calls {
		if present[c.Sample] {
			continue
		}
		present[c.Sample] = true
		row := make([]string, len(header))
		row[si], row[ai] = c.Sample, c.Serovar
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i][si] < out[j][si] })

	return merged, writeCSV(path, header, out)
}

// readTable reads a delimited file, choosing tab when the header line
// contains one and comma otherwise.
func readTable(path string) ([]string, [][]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	first, _, _ := strings.Cut(string(b), "\n")
	r := csv.NewReader(strings.NewReader(string(b)))
	if strings.Contains(first, "\t") {
		r.Comma = '\t'
		r.LazyQuotes = true
	}
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("%s: empty table", path)
	}
	if err != nil {
		return nil, nil, err
	}
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	return header, rows, nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	fh, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := csv.NewWriter(fh)
	_ = w.Write(header)
	_ = w.WriteAll(rows)
	if err := w.Error(); err != nil {
		fh.Close()
		return err
	}
	if err := fh.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func index(header []string, name string) int {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}

func cell(r []string, i int) string {
	if i < len(r) {
		return r[i]
	}
	return ""
}
