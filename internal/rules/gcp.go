package rules

import (
	"fmt"

	"github.com/djeeteg007/tf-audit/internal/tfparse"
)

func gcpRules() []Rule {
	return []Rule{
		{
			ID:          "GCP-GCS-001",
			AppliesTo:   []string{"google_storage_bucket"},
			Severity:    SeverityMedium,
			Remediation: "Set uniform_bucket_level_access = true to disable per-object ACLs.",
			Check:       checkGCSUniformAccess,
		},
	}
}

func checkGCSUniformAccess(res tfparse.ResourceBlock, _ *ScanContext) ([]FindingDraft, error) {
	if uniform, ok := res.AttrBool("uniform_bucket_level_access"); ok && uniform {
		return nil, nil
	}
	return []FindingDraft{{
		Message: fmt.Sprintf("bucket %s does not enforce uniform bucket-level access", res.Address),
	}}, nil
}
