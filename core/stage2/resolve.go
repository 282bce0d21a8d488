// Package stage2 resolves ambiguous Stage-1 calls from a single diagnostic
// nucleotide. Selection, coordinate projection and interpretation live here;
// aligning and base extraction are done by the caller.
package stage2

import (
	"fmt"

	"swineotype/core/hsp"
	"swineotype/core/resolver"
)

// Strand of the contig relative to the resolver reference.
type Strand string

const (
	Forward Strand = "+"
	Reverse Strand = "-"
)

// UnknownBase is recorded when the extractor returns no sequence.
const UnknownBase = "N"

// Thresholds are supplied by the caller; this package has no defaults.
type Thresholds struct {
	MinPID  float64
	MinAlen int
}

// Evidence is the best resolver hit projected onto the assembly.
// Base is empty until the caller extracts it.
type Evidence struct {
	RefID     string
	Contig    string
	ContigPos int // 1-based
	Strand    Strand
	PIdent    float64
	Length    int
	BitScore  float64
	Pair      string
	Base      string
}

// Region is the one-base samtools-style region of the diagnostic site.
func (e Evidence) Region() string {
	return fmt.Sprintf("%s:%d-%d", e.Contig, e.ContigPos, e.ContigPos)
}

// Spans reports whether pos lies within the aligned query interval,
// whichever way the interval is written.
func Spans(pos, qstart, qend int) bool {
	if qstart > qend {
		qstart, qend = qend, qstart
	}
	return qstart <= pos && pos <= qend
}

// MapToContig projects a 1-based reference position onto the subject.
// The offset is taken from qstart and walked along the subject in the
// direction sstart→send.
func MapToContig(pos, qstart, sstart, send int) (int, Strand) {
	qoff := pos - qstart
	if sstart <= send {
		return sstart + qoff, Forward
	}
	return sstart - qoff, Reverse
}

// Select returns the highest-bitscore hit that belongs to allowedPair,
// covers its diagnostic position and clears th. An empty allowedPair
// disables the pair filter. Ties keep the earlier hit. Nil means no
// hit qualified.
func Select(hits []hsp.Hit, allowedPair string, th Thresholds) (*Evidence, error) {
	var best *Evidence
	for _, h := range hits {
		meta, err := resolver.Parse(h.QSeqID)
		if err != nil {
			return nil, err
		}
		if allowedPair != "" && meta.Pair != allowedPair {
			continue
		}
		if !meta.HasPos() || !Spans(meta.Pos, h.QStart, h.QEnd) {
			continue
		}
		if h.PIdent < th.MinPID || h.Length < th.MinAlen {
			continue
		}
		if best != nil && h.BitScore <= best.BitScore {
			continue
		}
		pos, strand := MapToContig(meta.Pos, h.QStart, h.SStart, h.SEnd)
		best = &Evidence{
			RefID:     h.QSeqID,
			Contig:    h.SSeqID,
			ContigPos: pos,
			Strand:    strand,
			PIdent:    h.PIdent,
			Length:    h.Length,
			BitScore:  h.BitScore,
			Pair:      meta.Pair,
		}
	}
	return best, nil
}

// Interpret turns evidence into a serotype label. The base matching baseA
// calls candidate B; anything else calls candidate A. ok is false when ev
// is nil or its pair is not in known.
func Interpret(ev *Evidence, known []string) (label string, ok bool) {
	if ev == nil {
		return "", false
	}
	meta, err := resolver.Parse(ev.RefID)
	if err != nil {
		return "", false
	}
	recognized := false
	for _, p := range known {
		if meta.Pair == p {
			recognized = true
			break
		}
	}
	if !recognized {
		return "", false
	}
	label = meta.Call(ev.Base)
	return label, label != ""
}
