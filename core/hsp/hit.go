// core/hsp/hit.go
package hsp

// Columns is the tabular output format requested from blastn.
// Parse expects exactly these fields, in this order.
const Columns = "qseqid sseqid pident length qlen evalue bitscore qstart qend sstart send"

// OutFmt is the -outfmt argument (tabular, custom columns).
const OutFmt = "6 " + Columns

// NumColumns is the number of tab-separated fields per row.
const NumColumns = 11

// Hit is one aligned pair from blast tabular output.
// Start/end pairs are kept exactly as reported: SStart > SEnd means the
// query aligned to the reverse strand of the subject.
type Hit struct {
	QSeqID   string
	SSeqID   string
	PIdent   float64
	Length   int
	QLen     int
	EValue   float64
	BitScore float64
	QStart   int
	QEnd     int
	SStart   int
	SEnd     int
}

// Coverage is Length/QLen, or 0 when QLen is 0.
func (h Hit) Coverage() float64 {
	if h.QLen == 0 {
		return 0
	}
	return float64(h.Length) / float64(h.QLen)
}

// Reverse reports whether the subject coordinates run backwards.
func (h Hit) Reverse() bool { return h.SStart > h.SEnd }

// QuerySpan returns the query interval with lo <= hi.
func (h Hit) QuerySpan() (lo, hi int) {
	if h.QStart <= h.QEnd {
		return h.QStart, h.QEnd
	}
	return h.QEnd, h.QStart
}
