package rules

import (
	"fmt"

	"github.com/djeeteg007/tf-audit/internal/tfparse"
)

func kmsRules() []Rule {
	return []Rule{
		{
			ID:          "AWS-KMS-001",
			AppliesTo:   []string{"aws_kms_key"},
			Severity:    SeverityMedium,
			Remediation: "Set enable_key_rotation = true so key material rotates yearly.",
			Check:       checkKMSRotation,
		},
	}
}

func checkKMSRotation(res tfparse.ResourceBlock, _ *ScanContext) ([]FindingDraft, error) {
	if rotate, ok := res.AttrBool("enable_key_rotation"); ok && rotate {
		return nil, nil
	}
	return []FindingDraft{{
		Message: fmt.Sprintf("KMS key %s does not enable automatic rotation", res.Address),
	}}, nil
}
