package rules

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/djeeteg007/tf-audit/internal/tfparse"
)

// Severity levels in increasing order.
type Severity int

const (
	SeverityInfo Severity = iota + 1
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// MarshalText lets Severity serve as a JSON map key and field value.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity converts a severity name to its level.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info":
		return SeverityInfo, nil
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	case "critical":
		return SeverityCritical, nil
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}

// FindingDraft is the intermediate finding a rule produces. The evaluator
// fills in rule id, severity, address, file and remediation from the rule
// and resource it came from.
type FindingDraft struct {
	Message string
	// Line optionally points at a more precise location than the block start.
	Line int
}

// CheckFunc inspects one resource. Rules are pure with respect to the
// resource; the context is shared and read-only.
type CheckFunc func(res tfparse.ResourceBlock, ctx *ScanContext) ([]FindingDraft, error)

// Rule is one policy rule in the registry.
type Rule struct {
	// ID is globally unique; the registry rejects duplicates at build time.
	ID string
	// AppliesTo lists resource types the rule examines. An entry ending in
	// "*" is a provider wildcard (e.g. "aws_*") matched by type prefix.
	AppliesTo []string
	Severity  Severity
	// Remediation is the guidance attached to every finding this rule emits.
	Remediation string
	// KnowledgeRef optionally links a knowledge-base article.
	KnowledgeRef string
	Check        CheckFunc
}

// ScanContext is the read-only context shared by all rule evaluations in one
// scan. It is built once before evaluation begins and never mutated after.
type ScanContext struct {
	resources []tfparse.ResourceBlock
	byType    map[string][]tfparse.ResourceBlock
	log       logrus.FieldLogger
}

// NewScanContext indexes the extracted resources for cross-resource checks.
func NewScanContext(resources []tfparse.ResourceBlock, log logrus.FieldLogger) *ScanContext {
	if log == nil {
		log = logrus.New()
	}
	byType := make(map[string][]tfparse.ResourceBlock)
	for _, res := range resources {
		byType[res.Type] = append(byType[res.Type], res)
	}
	return &ScanContext{resources: resources, byType: byType, log: log}
}

// Resources returns every resource in the scan, in scan order.
func (c *ScanContext) Resources() []tfparse.ResourceBlock {
	return c.resources
}

// ResourcesOfType returns sibling resources of the given type.
func (c *ScanContext) ResourcesOfType(t string) []tfparse.ResourceBlock {
	return c.byType[t]
}

// Log returns the scan-scoped logging sink.
func (c *ScanContext) Log() logrus.FieldLogger {
	return c.log
}
