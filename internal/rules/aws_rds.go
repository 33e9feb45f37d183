package rules

import (
	"fmt"

	"github.com/djeeteg007/tf-audit/internal/tfparse"
)

var rdsTypes = []string{"aws_db_instance", "aws_rds_cluster"}

func rdsRules() []Rule {
	return []Rule{
		{
			ID:           "AWS-RDS-001",
			AppliesTo:    rdsTypes,
			Severity:     SeverityHigh,
			Remediation:  "Set storage_encrypted = true; use a customer-managed KMS key for sensitive workloads.",
			KnowledgeRef: "kb/aws/rds-encryption",
			Check:        checkRDSEncryption,
		},
		{
			ID:          "AWS-RDS-002",
			AppliesTo:   []string{"aws_db_instance"},
			Severity:    SeverityHigh,
			Remediation: "Set publicly_accessible = false and reach the database through a private subnet.",
			Check:       checkRDSPublic,
		},
		{
			ID:          "AWS-RDS-003",
			AppliesTo:   rdsTypes,
			Severity:    SeverityMedium,
			Remediation: "Set backup_retention_period to at least 7 days.",
			Check:       checkRDSBackups,
		},
	}
}

func checkRDSEncryption(res tfparse.ResourceBlock, _ *ScanContext) ([]FindingDraft, error) {
	if enc, ok := res.AttrBool("storage_encrypted"); ok && enc {
		return nil, nil
	}
	return []FindingDraft{{
		Message: fmt.Sprintf("database %s does not enable storage encryption", res.Address),
	}}, nil
}

func checkRDSPublic(res tfparse.ResourceBlock, _ *ScanContext) ([]FindingDraft, error) {
	if public, ok := res.AttrBool("publicly_accessible"); ok && public {
		return []FindingDraft{{
			Message: fmt.Sprintf("database %s is publicly accessible", res.Address),
		}}, nil
	}
	return nil, nil
}

func checkRDSBackups(res tfparse.ResourceBlock, _ *ScanContext) ([]FindingDraft, error) {
	v, ok := res.Attr("backup_retention_period")
	if !ok {
		// The provider default is 1 day for instances, which still counts
		// as backups being on.
		return nil, nil
	}
	days, isNum := v.AsNumber()
	if !isNum || days > 0 {
		return nil, nil
	}
	return []FindingDraft{{
		Message: fmt.Sprintf("database %s disables automated backups (retention 0)", res.Address),
	}}, nil
}
