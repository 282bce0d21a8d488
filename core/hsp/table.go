// core/hsp/table.go
package hsp

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Parse reads blast tabular rows (no header) in the Columns layout.
// Blank lines are skipped; a malformed row is an error carrying its line number.
func Parse(r io.Reader) ([]Hit, error) {
	var hits []Hit
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	ln := 0
	for sc.Scan() {
		ln++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		h, err := parseRow(strings.Split(line, "\t"))
		if err != nil {
			return nil, fmt.Errorf("hsp: line %d: %w", ln, err)
		}
		hits = append(hits, h)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("hsp: %w", err)
	}
	return hits, nil
}

// ParseString is Parse over an in-memory table.
func ParseString(s string) ([]Hit, error) { return Parse(strings.NewReader(s)) }

func parseRow(f []string) (Hit, error) {
	if len(f) != NumColumns {
		return Hit{}, fmt.Errorf("want %d fields, got %d", NumColumns, len(f))
	}
	var (
		h   Hit
		err error
	)
	h.QSeqID = f[0]
	h.SSeqID = f[1]
	if h.PIdent, err = atof("pident", f[2]); err != nil {
		return h, err
	}
	if h.Length, err = atoi("length", f[3]); err != nil {
		return h, err
	}
	if h.QLen, err = atoi("qlen", f[4]); err != nil {
		return h, err
	}
	if h.EValue, err = atof("evalue", f[5]); err != nil {
		return h, err
	}
	if h.BitScore, err = atof("bitscore", f[6]); err != nil {
		return h, err
	}
	if h.QStart, err = atoi("qstart", f[7]); err != nil {
		return h, err
	}
	if h.QEnd, err = atoi("qend", f[8]); err != nil {
		return h, err
	}
	if h.SStart, err = atoi("sstart", f[9]); err != nil {
		return h, err
	}
	if h.SEnd, err = atoi("send", f[10]); err != nil {
		return h, err
	}
	return h, nil
}

func atof(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("bad %s %q", name, s)
	}
	return v, nil
}

func atoi(name, s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("bad %s %q", name, s)
	}
	return v, nil
}
