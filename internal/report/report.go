// Package report defines the Report internal/orchestrator hands back to a
// caller once a workflow reaches a terminal state.
package report

import (
	"sort"
	"time"

	"github.com/castforge/castforge/internal/ledger"
	"github.com/castforge/castforge/internal/phase"
	"github.com/castforge/castforge/internal/workflow"
)

// Outcome is the run's overall result.
type Outcome string

const (
	Success Outcome = "Success"
	Failure Outcome = "Failure"
)

// PhaseReport summarises one phase's final state.
type PhaseReport struct {
	PhaseID  phase.ID
	Status   workflow.Status
	Attempts int
	Duration time.Duration
	Error    string // empty unless Status is Failed
	NonFatal bool   // true when Status is Failed but the phase was BestEffort
}

// Report is the orchestrator facade's return value.
type Report struct {
	WorkflowID    workflow.ID
	Type          workflow.Type
	Outcome       Outcome
	TotalDuration time.Duration
	PhaseReports  []PhaseReport
	LedgerSummary ledger.Summary
}

// Build derives a Report from a terminal workflow.Context. start is the
// wall-clock time this process began driving the run (on resume, this is
// the resume call's start time, not the original run's — per the durable
// checkpoint's own documented timing caveat).
func Build(ctx *workflow.Context, start time.Time, aborted bool) Report {
	r := Report{
		WorkflowID:    ctx.WorkflowID,
		Type:          ctx.Type,
		TotalDuration: time.Since(start),
		LedgerSummary: ledger.Summarize(ctx),
	}
	if aborted {
		r.Outcome = Failure
	} else {
		r.Outcome = Success
	}

	for id, status := range ctx.PhaseStatus {
		pr := PhaseReport{
			PhaseID:  id,
			Status:   status,
			Attempts: ctx.Attempts[id],
		}
		if t, ok := ctx.Timings[id]; ok {
			pr.Duration = t.End.Sub(t.Start)
		}
		if errRec, ok := ctx.Errors[id]; ok {
			pr.Error = errRec.Message
		}
		pr.NonFatal = ctx.NonFatalFail[id]
		r.PhaseReports = append(r.PhaseReports, pr)
	}
	sort.Slice(r.PhaseReports, func(i, j int) bool {
		return r.PhaseReports[i].PhaseID < r.PhaseReports[j].PhaseID
	})
	return r
}
