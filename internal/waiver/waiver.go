// Package waiver applies user-supplied suppression policy to findings.
// Waiving never deletes a finding: it flips the waived flag and records the
// reason, so the full evaluation result stays auditable.
package waiver

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/djeeteg007/tf-audit/internal/rules"
	"github.com/djeeteg007/tf-audit/internal/scan"
)

// ReasonBelowThreshold marks findings waived by the severity gate rather
// than an explicit waiver entry.
const ReasonBelowThreshold = "below-threshold"

// Entry suppresses one rule on one resource, optionally until an expiry.
type Entry struct {
	RuleID          string     `yaml:"rule_id" json:"rule_id"`
	ResourceAddress string     `yaml:"resource_address" json:"resource_address"`
	ExpiresAt       *time.Time `yaml:"expires_at,omitempty" json:"expires_at,omitempty"`
	Reason          string     `yaml:"reason,omitempty" json:"reason,omitempty"`
}

// Policy is a severity threshold plus explicit waiver entries.
type Policy struct {
	// MinSeverity is the lowest severity that counts as active. Zero means
	// no threshold.
	MinSeverity rules.Severity
	Waivers     []Entry
}

// Apply marks waived and below-threshold findings. The waiver state of each
// finding is recomputed from scratch, so applying the same policy to an
// already-gated list yields an identical result.
func (p Policy) Apply(findings []scan.Finding, now time.Time) []scan.Finding {
	out := make([]scan.Finding, len(findings))
	copy(out, findings)

	for i := range out {
		out[i].Waived = false
		out[i].WaiverReason = ""

		if entry, ok := p.match(out[i], now); ok {
			out[i].Waived = true
			out[i].WaiverReason = entry.Reason
			if out[i].WaiverReason == "" {
				out[i].WaiverReason = fmt.Sprintf("waived for %s", entry.RuleID)
			}
			continue
		}
		if p.MinSeverity > 0 && out[i].Severity < p.MinSeverity {
			out[i].Waived = true
			out[i].WaiverReason = ReasonBelowThreshold
		}
	}
	return out
}

func (p Policy) match(f scan.Finding, now time.Time) (Entry, bool) {
	for _, entry := range p.Waivers {
		if entry.RuleID != f.RuleID || entry.ResourceAddress != f.ResourceAddress {
			continue
		}
		if entry.ExpiresAt != nil && !entry.ExpiresAt.After(now) {
			continue
		}
		return entry, true
	}
	return Entry{}, false
}

type policyFile struct {
	MinSeverity string  `yaml:"min_severity"`
	Waivers     []Entry `yaml:"waivers"`
}

// Load parses a YAML policy document:
//
//	min_severity: medium
//	waivers:
//	  - rule_id: AWS-S3-001
//	    resource_address: aws_s3_bucket.logs
//	    expires_at: 2026-12-31T00:00:00Z
//	    reason: migration in progress
func Load(data []byte) (Policy, error) {
	var spec policyFile
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return Policy{}, fmt.Errorf("parsing waiver policy: %w", err)
	}

	policy := Policy{Waivers: spec.Waivers}
	if spec.MinSeverity != "" {
		sev, err := rules.ParseSeverity(spec.MinSeverity)
		if err != nil {
			return Policy{}, fmt.Errorf("parsing waiver policy: %w", err)
		}
		policy.MinSeverity = sev
	}
	return policy, nil
}
