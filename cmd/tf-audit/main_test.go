package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/djeeteg007/tf-audit/internal/rules"
	"github.com/djeeteg007/tf-audit/internal/scan"
)

func TestHighestActiveSeverity(t *testing.T) {
	findings := []scan.Finding{
		{Severity: rules.SeverityCritical, Waived: true},
		{Severity: rules.SeverityMedium},
		{Severity: rules.SeverityLow},
	}
	assert.Equal(t, rules.SeverityMedium, highestActiveSeverity(findings))
	assert.Equal(t, rules.Severity(0), highestActiveSeverity(nil))
}

func TestGateExitCode(t *testing.T) {
	high := []scan.Finding{{Severity: rules.SeverityHigh}}
	medium := []scan.Finding{{Severity: rules.SeverityMedium}}
	waived := []scan.Finding{{Severity: rules.SeverityHigh, Waived: true}}

	assert.Equal(t, exitThresholdHigh, gateExitCode(high, rules.SeverityMedium))
	assert.Equal(t, exitThresholdMedium, gateExitCode(medium, rules.SeverityMedium))
	assert.Equal(t, 0, gateExitCode(medium, rules.SeverityHigh))
	assert.Equal(t, 0, gateExitCode(waived, rules.SeverityLow))
	assert.Equal(t, 0, gateExitCode(nil, rules.SeverityLow))
}

func TestScanFlagsValidation(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"scan"})
	err := cmd.Execute()
	assert.Error(t, err)
}
