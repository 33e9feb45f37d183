// Package report assembles findings, severity summary and drift data into
// one immutable report value. Pure aggregation, no I/O.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/djeeteg007/tf-audit/internal/drift"
	"github.com/djeeteg007/tf-audit/internal/rules"
	"github.com/djeeteg007/tf-audit/internal/scan"
)

// DriftSection carries either the drift analysis or the analyzer's error
// text, never both.
type DriftSection struct {
	Counts  map[drift.Action]int `json:"counts,omitempty"`
	Changes []drift.Change       `json:"changes,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// Report is the final scan output, serialized with stable field names.
type Report struct {
	ScanID         string                 `json:"scan_id"`
	Findings       []scan.Finding         `json:"findings"`
	SeverityCounts map[rules.Severity]int `json:"severity_counts"`
	Drift          *DriftSection          `json:"drift,omitempty"`
	GeneratedAt    time.Time              `json:"generated_at"`
	Truncated      bool                   `json:"truncated,omitempty"`
}

// Assemble builds the report. The severity summary counts non-waived
// findings only; waived findings stay in the list for audit. driftResult and
// driftErr come from the drift analyzer and may both be nil when no plan was
// supplied.
func Assemble(findings []scan.Finding, driftResult *drift.Result, driftErr error, truncated bool) Report {
	counts := make(map[rules.Severity]int)
	for _, f := range findings {
		if f.Waived {
			continue
		}
		counts[f.Severity]++
	}

	if findings == nil {
		findings = []scan.Finding{}
	}

	rep := Report{
		ScanID:         uuid.NewString(),
		Findings:       findings,
		SeverityCounts: counts,
		GeneratedAt:    time.Now().UTC(),
		Truncated:      truncated,
	}

	switch {
	case driftErr != nil:
		rep.Drift = &DriftSection{Error: driftErr.Error()}
	case driftResult != nil:
		rep.Drift = &DriftSection{Counts: driftResult.Counts, Changes: driftResult.Changes}
	}
	return rep
}
