package rules

import (
	"fmt"

	"github.com/djeeteg007/tf-audit/internal/tfparse"
)

// publicACLs are the canned ACLs that expose bucket contents.
var publicACLs = map[string]bool{
	"public-read":       true,
	"public-read-write": true,
}

func s3Rules() []Rule {
	return []Rule{
		{
			ID:           "AWS-S3-001",
			AppliesTo:    []string{"aws_s3_bucket"},
			Severity:     SeverityHigh,
			Remediation:  "Enable server-side encryption with a server_side_encryption_configuration block or a aws_s3_bucket_server_side_encryption_configuration resource.",
			KnowledgeRef: "kb/aws/s3-encryption",
			Check:        checkS3Encryption,
		},
		{
			ID:          "AWS-S3-002",
			AppliesTo:   []string{"aws_s3_bucket", "aws_s3_bucket_acl"},
			Severity:    SeverityCritical,
			Remediation: "Remove the public ACL and use bucket policies with explicit principals instead.",
			Check:       checkS3PublicACL,
		},
		{
			ID:          "AWS-S3-003",
			AppliesTo:   []string{"aws_s3_bucket"},
			Severity:    SeverityLow,
			Remediation: "Enable versioning to protect against accidental deletion and overwrite.",
			Check:       checkS3Versioning,
		},
	}
}

// checkS3Encryption flags buckets with neither an inline encryption block
// nor a sibling aws_s3_bucket_server_side_encryption_configuration resource
// pointing at them.
func checkS3Encryption(res tfparse.ResourceBlock, ctx *ScanContext) ([]FindingDraft, error) {
	if len(res.NestedBlocks("server_side_encryption_configuration")) > 0 {
		return nil, nil
	}

	// The AWS provider v4+ splits encryption into its own resource; a
	// sibling configuration referencing this bucket satisfies the rule.
	for _, sibling := range ctx.ResourcesOfType("aws_s3_bucket_server_side_encryption_configuration") {
		if referencesBucket(sibling, res) {
			return nil, nil
		}
	}

	return []FindingDraft{{
		Message: fmt.Sprintf("S3 bucket %s has no server-side encryption configured", res.Address),
	}}, nil
}

func checkS3PublicACL(res tfparse.ResourceBlock, _ *ScanContext) ([]FindingDraft, error) {
	acl := res.AttrString("acl")
	if !publicACLs[acl] {
		return nil, nil
	}
	return []FindingDraft{{
		Message: fmt.Sprintf("%s grants public access via ACL %q", res.Address, acl),
	}}, nil
}

func checkS3Versioning(res tfparse.ResourceBlock, _ *ScanContext) ([]FindingDraft, error) {
	for _, blk := range res.NestedBlocks("versioning") {
		if enabled, ok := blk.Get("enabled"); ok {
			if b, isBool := enabled.AsBool(); isBool && b {
				return nil, nil
			}
		}
	}
	return []FindingDraft{{
		Message: fmt.Sprintf("S3 bucket %s does not enable versioning", res.Address),
	}}, nil
}

// referencesBucket reports whether a configuration resource's bucket
// attribute points at the given bucket, either by name or by reference
// expression (aws_s3_bucket.logs.id).
func referencesBucket(config, bucket tfparse.ResourceBlock) bool {
	ref := config.AttrString("bucket")
	if ref == "" {
		return false
	}
	if ref == bucket.AttrString("bucket") && ref != "" {
		return true
	}
	prefix := bucket.Type + "." + bucket.Name
	return ref == prefix || ref == prefix+".id" || ref == prefix+".bucket"
}
