package rules

import (
	"fmt"

	"github.com/djeeteg007/tf-audit/internal/tfparse"
)

// taggableExceptions are aws_* types that do not support tags or where
// tagging carries no operational value.
var taggableExceptions = map[string]bool{
	"aws_security_group_rule": true,
	"aws_iam_role_policy":     true,
	"aws_iam_user_policy":     true,
	"aws_iam_group_policy":    true,
	"aws_kms_alias":           true,
	"aws_route":               true,
	"aws_s3_bucket_acl":       true,
	"aws_s3_bucket_server_side_encryption_configuration": true,
}

func tagRules() []Rule {
	return []Rule{
		{
			ID:          "AWS-TAG-001",
			AppliesTo:   []string{"aws_*"},
			Severity:    SeverityInfo,
			Remediation: "Add a tags block with at least an owner and environment tag.",
			Check:       checkMissingTags,
		},
	}
}

func checkMissingTags(res tfparse.ResourceBlock, _ *ScanContext) ([]FindingDraft, error) {
	if res.Mode == "data" || taggableExceptions[res.Type] {
		return nil, nil
	}
	if v, ok := res.Attr("tags"); ok && v.Len() > 0 {
		return nil, nil
	}
	return []FindingDraft{{
		Message: fmt.Sprintf("%s has no tags", res.Address),
	}}, nil
}
