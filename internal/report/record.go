// Package report holds the flat per-sample result and its renderings:
// CSV row, API wire value and the one-line console status.
package report

import (
	"fmt"
	"path/filepath"
	"strconv"

	"swineotype/core/decision"
	"swineotype/core/stage1"
	"swineotype/core/stage2"
	"swineotype/pkg/api"
)

// CSVHeader is the merged CSV column order.
var CSVHeader = []string{
	"sample", "stage1_top", "ref_id", "contig", "contig_pos",
	"strand", "base", "status", "final_serotype",
}

// Record is one assembly's outcome.
type Record struct {
	Sample        string
	Stage1Top     string
	RefID         string
	Contig        string
	ContigPos     int
	Strand        string
	Base          string
	Status        decision.Status
	FinalSerotype string
	Stage2Status  decision.Stage2Status
	Fraction      float64
	Delta         float64
	Err           error
}

// Build assembles a Record from the stage results. ev may be nil.
func Build(sample string, r stage1.Result, ev *stage2.Evidence, out decision.Outcome) Record {
	rec := Record{
		Sample:        sample,
		Stage1Top:     r.Top,
		Status:        out.Status,
		FinalSerotype: out.Serotype,
		Stage2Status:  out.Stage2Status,
		Fraction:      r.Fraction,
		Delta:         r.Delta,
	}
	if ev != nil {
		rec.RefID = ev.RefID
		rec.Contig = ev.Contig
		rec.ContigPos = ev.ContigPos
		rec.Strand = string(ev.Strand)
		rec.Base = ev.Base
	}
	return rec
}

// Skipped is the record of an assembly whose processing failed.
func Skipped(sample string, err error) Record {
	return Record{
		Sample:       sample,
		Status:       decision.StatusSkipped,
		Stage2Status: decision.Stage2Skipped,
		Err:          err,
	}
}

// CSVRow renders r in CSVHeader order. A zero position is left empty.
func (r Record) CSVRow() []string {
	pos := ""
	if r.ContigPos > 0 {
		pos = strconv.Itoa(r.ContigPos)
	}
	return []string{
		r.Sample, r.Stage1Top, r.RefID, r.Contig, pos,
		r.Strand, r.Base, string(r.Status), r.FinalSerotype,
	}
}

// API converts r to its wire form.
func (r Record) API(runID string) api.SampleResultV1 {
	v := api.SampleResultV1{
		Sample:        r.Sample,
		Stage1Top:     r.Stage1Top,
		RefID:         r.RefID,
		Contig:        r.Contig,
		ContigPos:     r.ContigPos,
		Strand:        r.Strand,
		Base:          r.Base,
		Status:        string(r.Status),
		FinalSerotype: r.FinalSerotype,
		Stage2Status:  string(r.Stage2Status),
		Fraction:      r.Fraction,
		Delta:         r.Delta,
		RunID:         runID,
	}
	if r.Err != nil {
		v.Error = r.Err.Error()
	}
	return v
}

// OK reports whether the record carries a final serotype.
func (r Record) OK() bool { return r.Err == nil && r.Status.Called() && r.FinalSerotype != "" }

// StatusLine renders the console line for r and whether it belongs on
// stdout (true) or stderr.
func (r Record) StatusLine() (string, bool) {
	name := filepath.Base(r.Sample)
	switch {
	case r.Err != nil:
		return fmt.Sprintf("[WARN] %s => %s (%v)", name, r.Status, r.Err), false
	case r.OK():
		return fmt.Sprintf("[OK] %s => %s (%s)", name, r.FinalSerotype, r.Status), true
	default:
		return fmt.Sprintf("[WARN] %s => %s", name, r.Status), false
	}
}
