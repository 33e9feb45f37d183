package report

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djeeteg007/tf-audit/internal/drift"
	"github.com/djeeteg007/tf-audit/internal/rules"
	"github.com/djeeteg007/tf-audit/internal/scan"
)

func TestAssembleCountsActiveFindingsOnly(t *testing.T) {
	findings := []scan.Finding{
		{RuleID: "A", Severity: rules.SeverityHigh},
		{RuleID: "B", Severity: rules.SeverityHigh, Waived: true, WaiverReason: "accepted"},
		{RuleID: "C", Severity: rules.SeverityLow},
	}

	rep := Assemble(findings, nil, nil, false)
	assert.Equal(t, map[rules.Severity]int{
		rules.SeverityHigh: 1,
		rules.SeverityLow:  1,
	}, rep.SeverityCounts)

	// Waived findings stay in the list for audit.
	assert.Len(t, rep.Findings, 3)
	assert.NotEmpty(t, rep.ScanID)
	assert.False(t, rep.GeneratedAt.IsZero())
}

func TestAssembleAllWaived(t *testing.T) {
	findings := []scan.Finding{
		{RuleID: "A", Severity: rules.SeverityHigh, Waived: true, WaiverReason: "accepted"},
	}
	rep := Assemble(findings, nil, nil, false)
	assert.Empty(t, rep.SeverityCounts)

	out, err := json.Marshal(rep)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"severity_counts":{}`)
}

func TestAssembleDriftSection(t *testing.T) {
	result := &drift.Result{
		Counts:  map[drift.Action]int{drift.ActionCreate: 1},
		Changes: []drift.Change{{Address: "aws_s3_bucket.logs", Action: drift.ActionCreate}},
	}

	rep := Assemble(nil, result, nil, false)
	require.NotNil(t, rep.Drift)
	assert.Equal(t, 1, rep.Drift.Counts[drift.ActionCreate])
	assert.Empty(t, rep.Drift.Error)
}

func TestAssembleDriftError(t *testing.T) {
	rep := Assemble(nil, nil, &drift.ParseError{Detail: "missing resource_changes key"}, false)
	require.NotNil(t, rep.Drift)
	assert.Contains(t, rep.Drift.Error, "resource_changes")
	assert.Nil(t, rep.Drift.Counts)
}

func TestAssembleStableFieldNames(t *testing.T) {
	rep := Assemble(nil, nil, nil, true)
	out, err := json.Marshal(rep)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &decoded))
	for _, key := range []string{"findings", "severity_counts", "generated_at", "scan_id", "truncated"} {
		assert.Contains(t, decoded, key)
	}
	assert.NotContains(t, decoded, "drift")
}
