// Package stage1 scores whitelist alignments per serotype label and decides
// whether the plurality call can stand without a diagnostic-site check.
package stage1

import (
	"sort"

	"swineotype/core/hsp"
)

// Thresholds are supplied by the caller; this package has no defaults.
type Thresholds struct {
	MinPID    float64 // percent identity floor
	MinCov    float64 // alignment length / query length floor
	Plurality float64 // minimum top share of the total score
	Delta     float64 // minimum top minus second score
	Ambiguous map[string]bool
}

// LabelSource resolves an allele id to its serotype label.
type LabelSource interface {
	LabelOf(alleleID string) (string, bool)
}

// Result is the Stage-1 outcome for one assembly.
type Result struct {
	Scores          map[string]float64
	Ranked          []string // labels by score, descending; ties keep first-seen order
	Top             string
	Second          string
	TopScore        float64
	SecondScore     float64
	Total           float64
	Fraction        float64
	Delta           float64
	Decisive        bool
	MustForceStage2 bool
	Kept            int // hits that passed the identity/coverage filter
}

// Share returns label's fraction of the total score (0 when total is 0).
func (r Result) Share(label string) float64 {
	if r.Total == 0 {
		return 0
	}
	return r.Scores[label] / r.Total
}

// Passes reports whether h clears the identity and coverage floors.
func (th Thresholds) Passes(h hsp.Hit) bool {
	return h.PIdent >= th.MinPID && h.Coverage() >= th.MinCov
}

// Score aggregates bitscores per label and applies the plurality rule.
func Score(hits []hsp.Hit, labels LabelSource, th Thresholds) Result {
	r := Result{Scores: make(map[string]float64)}
	for _, h := range hits {
		if !th.Passes(h) {
			continue
		}
		r.Kept++
		label, ok := labels.LabelOf(h.QSeqID)
		if !ok {
			continue
		}
		if _, seen := r.Scores[label]; !seen {
			r.Ranked = append(r.Ranked, label)
		}
		r.Scores[label] += h.BitScore
		r.Total += h.BitScore
	}

	sort.SliceStable(r.Ranked, func(i, j int) bool {
		return r.Scores[r.Ranked[i]] > r.Scores[r.Ranked[j]]
	})
	if len(r.Ranked) > 0 {
		r.Top = r.Ranked[0]
		r.TopScore = r.Scores[r.Top]
	}
	if len(r.Ranked) > 1 {
		r.Second = r.Ranked[1]
		r.SecondScore = r.Scores[r.Second]
	}
	if r.Total != 0 {
		r.Fraction = r.TopScore / r.Total
	}
	r.Delta = r.TopScore - r.SecondScore
	r.Decisive = r.Fraction >= th.Plurality && r.Delta >= th.Delta
	r.MustForceStage2 = r.Top != "" && th.Ambiguous[r.Top]
	return r
}
