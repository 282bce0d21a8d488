// internal/cliutil/cliutil.go
package cliutil

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoInput is returned when no pattern yields a path.
var ErrNoInput = errors.New("no assemblies matched")

func hasGlobMeta(s string) bool { return strings.ContainsAny(s, "*?[") }

// ExpandPatterns expands glob patterns (sorted per pattern) and passes
// plain paths through. Surrounding quotes are stripped. Unmatched globs
// contribute nothing; an empty result is ErrNoInput.
func ExpandPatterns(patterns []string) ([]string, error) {
	var out []string
	for _, p := range patterns {
		p = strings.Trim(strings.TrimSpace(p), `"'`)
		if p == "" {
			continue
		}
		if !hasGlobMeta(p) {
			out = append(out, p)
			continue
		}
		m, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("bad glob %q: %w", p, err)
		}
		sort.Strings(m)
		out = append(out, m...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoInput, strings.Join(patterns, ", "))
	}
	return out, nil
}

// Absolute resolves every path against the working directory.
func Absolute(paths []string) ([]string, error) {
	out := make([]string, len(paths))
	for i, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		out[i] = abs
	}
	return out, nil
}
