package rules

import (
	"fmt"

	"github.com/djeeteg007/tf-audit/internal/tfparse"
)

func azureRules() []Rule {
	return []Rule{
		{
			ID:          "AZR-STG-001",
			AppliesTo:   []string{"azurerm_storage_account"},
			Severity:    SeverityHigh,
			Remediation: "Set enable_https_traffic_only = true on the storage account.",
			Check:       checkAzureStorageHTTPS,
		},
	}
}

func checkAzureStorageHTTPS(res tfparse.ResourceBlock, _ *ScanContext) ([]FindingDraft, error) {
	if https, ok := res.AttrBool("enable_https_traffic_only"); ok && !https {
		return []FindingDraft{{
			Message: fmt.Sprintf("storage account %s allows plain HTTP traffic", res.Address),
		}}, nil
	}
	return nil, nil
}
