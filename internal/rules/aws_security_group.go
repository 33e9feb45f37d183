package rules

import (
	"fmt"

	"github.com/djeeteg007/tf-audit/internal/tfparse"
)

// Dangerous inbound ports when exposed to 0.0.0.0/0 or ::/0.
var dangerousPorts = []struct {
	port int
	name string
}{
	{22, "SSH"},
	{3389, "RDP"},
	{3306, "MySQL"},
	{5432, "PostgreSQL"},
	{6379, "Redis"},
	{9200, "Elasticsearch"},
}

func securityGroupRules() []Rule {
	return []Rule{
		{
			ID:           "AWS-SG-001",
			AppliesTo:    []string{"aws_security_group", "aws_security_group_rule"},
			Severity:     SeverityCritical,
			Remediation:  "Restrict the CIDR to known ranges or move access behind a bastion host or VPN.",
			KnowledgeRef: "kb/aws/security-groups",
			Check:        checkOpenIngress,
		},
		{
			ID:          "AWS-SG-002",
			AppliesTo:   []string{"aws_security_group"},
			Severity:    SeverityLow,
			Remediation: "Scope egress to the destinations the workload actually needs.",
			Check:       checkUnrestrictedEgress,
		},
	}
}

func checkOpenIngress(res tfparse.ResourceBlock, _ *ScanContext) ([]FindingDraft, error) {
	var drafts []FindingDraft

	if res.Type == "aws_security_group_rule" {
		if res.AttrString("type") != "ingress" {
			return nil, nil
		}
		drafts = append(drafts, checkIngressEntry(tfparse.MapValue(res.Attributes), res.Address)...)
		return drafts, nil
	}

	for _, ingress := range res.NestedBlocks("ingress") {
		drafts = append(drafts, checkIngressEntry(ingress, res.Address)...)
	}
	return drafts, nil
}

func checkIngressEntry(entry tfparse.Value, address string) []FindingDraft {
	open := openCIDRs(entry)
	if len(open) == 0 {
		return nil
	}

	fromPort := numberAttr(entry, "from_port")
	toPort := numberAttr(entry, "to_port")
	protocol := stringAttr(entry, "protocol")
	allPorts := protocol == "-1" || protocol == "all"

	var drafts []FindingDraft
	for _, dp := range dangerousPorts {
		if allPorts || (dp.port >= fromPort && dp.port <= toPort) {
			drafts = append(drafts, FindingDraft{
				Message: fmt.Sprintf("%s port %d open to the internet (%v) on %s", dp.name, dp.port, open, address),
			})
		}
	}
	if len(drafts) == 0 {
		drafts = append(drafts, FindingDraft{
			Message: fmt.Sprintf("ingress on %s allows %v for ports %d-%d", address, open, fromPort, toPort),
		})
	}
	return drafts
}

func checkUnrestrictedEgress(res tfparse.ResourceBlock, _ *ScanContext) ([]FindingDraft, error) {
	for _, egress := range res.NestedBlocks("egress") {
		if len(openCIDRs(egress)) > 0 {
			return []FindingDraft{{
				Message: fmt.Sprintf("%s allows unrestricted egress to the internet", res.Address),
			}}, nil
		}
	}
	return nil, nil
}

func openCIDRs(entry tfparse.Value) []string {
	var open []string
	for _, key := range []string{"cidr_blocks", "ipv6_cidr_blocks"} {
		list, ok := entry.Get(key)
		if !ok {
			continue
		}
		items, isList := list.AsList()
		if !isList {
			continue
		}
		for _, item := range items {
			if s, isStr := item.AsString(); isStr && (s == "0.0.0.0/0" || s == "::/0") {
				open = append(open, s)
			}
		}
	}
	return open
}

func stringAttr(entry tfparse.Value, key string) string {
	if v, ok := entry.Get(key); ok {
		if s, isStr := v.AsString(); isStr {
			return s
		}
	}
	return ""
}

func numberAttr(entry tfparse.Value, key string) int {
	if v, ok := entry.Get(key); ok {
		if n, isNum := v.AsNumber(); isNum {
			return int(n)
		}
	}
	return 0
}
