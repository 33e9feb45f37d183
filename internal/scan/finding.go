package scan

import (
	"github.com/djeeteg007/tf-audit/internal/rules"
)

// Synthetic rule ids for recovered failures. They sort into the report like
// ordinary findings so callers always see what was skipped.
const (
	RuleIDFileSkipped = "FILE-SKIPPED"
	RuleIDParseError  = "PARSE-ERROR"
	// RuleErrorPrefix prefixes the id of a rule whose evaluation failed,
	// e.g. "RULE-ERROR:AWS-S3-001".
	RuleErrorPrefix = "RULE-ERROR:"
)

// Finding is one reported policy violation. Only the Waived and WaiverReason
// fields change after evaluation, and only inside the waiver gate.
type Finding struct {
	RuleID          string         `json:"rule_id"`
	Severity        rules.Severity `json:"severity"`
	ResourceAddress string         `json:"resource_address,omitempty"`
	File            string         `json:"file,omitempty"`
	Line            int            `json:"line,omitempty"`
	Message         string         `json:"message"`
	Remediation     string         `json:"remediation,omitempty"`
	KnowledgeRef    string         `json:"knowledge_ref,omitempty"`
	Waived          bool           `json:"waived"`
	WaiverReason    string         `json:"waiver_reason,omitempty"`
}
