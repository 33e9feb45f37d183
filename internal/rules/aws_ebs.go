package rules

import (
	"fmt"

	"github.com/djeeteg007/tf-audit/internal/tfparse"
)

func ebsRules() []Rule {
	return []Rule{
		{
			ID:          "AWS-EBS-001",
			AppliesTo:   []string{"aws_ebs_volume"},
			Severity:    SeverityHigh,
			Remediation: "Set encrypted = true on the volume, or enable EBS encryption by default for the account.",
			Check:       checkEBSEncryption,
		},
	}
}

func checkEBSEncryption(res tfparse.ResourceBlock, _ *ScanContext) ([]FindingDraft, error) {
	if enc, ok := res.AttrBool("encrypted"); ok && enc {
		return nil, nil
	}
	return []FindingDraft{{
		Message: fmt.Sprintf("EBS volume %s is not encrypted", res.Address),
	}}, nil
}
