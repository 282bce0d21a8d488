// Package decision combines Stage-1 and Stage-2 outcomes into the final
// per-sample status. It performs no I/O.
package decision

import (
	"swineotype/core/stage1"
	"swineotype/core/stage2"
)

// Status is the final per-sample status code.
type Status string

const (
	StatusStage1       Status = "STAGE1"
	StatusStage2       Status = "STAGE2"
	StatusNoCallStage2 Status = "NO_CALL_STAGE2"
	StatusSkipped      Status = "SKIPPED"
)

// Called reports whether the status carries a serotype.
func (s Status) Called() bool { return s == StatusStage1 || s == StatusStage2 }

// Stage2Status records what happened to the diagnostic-site step.
type Stage2Status string

const (
	Stage2OK      Stage2Status = "OK"
	Stage2NoHSP   Stage2Status = "NO_HSP_OR_LOW_QUAL"
	Stage2Skipped Stage2Status = "SKIPPED"
)

// Pair is a discriminating pair: Stage-2 is restricted to Name when the
// Stage-1 top or second label is one of Labels.
type Pair struct {
	Name   string
	Labels []string
}

func (p Pair) has(label string) bool {
	if label == "" {
		return false
	}
	for _, l := range p.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Names lists pair names in rule order.
func Names(pairs []Pair) []string {
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, p.Name)
	}
	return out
}

// AllowedPair returns the first pair containing top or second, or "".
func AllowedPair(top, second string, pairs []Pair) string {
	for _, p := range pairs {
		if p.has(top) || p.has(second) {
			return p.Name
		}
	}
	return ""
}

// NeedsStage2 reports whether Stage-1 alone cannot stand.
func NeedsStage2(r stage1.Result) bool { return !r.Decisive || r.MustForceStage2 }

// Plan is the Stage-2 decision taken after Stage-1.
type Plan struct {
	MustStage2  bool
	AllowedPair string
}

// Run reports whether Stage-2 should be executed.
func (p Plan) Run() bool { return p.MustStage2 && p.AllowedPair != "" }

// PlanFor derives the Stage-2 plan from a Stage-1 result.
func PlanFor(r stage1.Result, pairs []Pair) Plan {
	return Plan{
		MustStage2:  NeedsStage2(r),
		AllowedPair: AllowedPair(r.Top, r.Second, pairs),
	}
}

// Outcome is the final call for one sample.
type Outcome struct {
	Status       Status
	Stage2Status Stage2Status
	Serotype     string
}

// Finalize synthesizes the final status. ran tells whether Stage-2 was
// executed; ev is its evidence (nil when none qualified or not run).
// A Stage-2 run without evidence is reported through Stage2Status; the
// final status is then NO_CALL_STAGE2.
func Finalize(r stage1.Result, plan Plan, ran bool, ev *stage2.Evidence, pairs []Pair) Outcome {
	out := Outcome{Stage2Status: Stage2Skipped}
	if ran {
		out.Stage2Status = Stage2NoHSP
		if ev != nil {
			out.Stage2Status = Stage2OK
		}
	}

	switch {
	case ev != nil:
		if label, ok := stage2.Interpret(ev, Names(pairs)); ok {
			out.Status, out.Serotype = StatusStage2, label
		} else {
			out.Status = StatusNoCallStage2
		}
	case r.Decisive && !plan.MustStage2:
		out.Status, out.Serotype = StatusStage1, r.Top
	default:
		out.Status = StatusNoCallStage2
	}
	return out
}
