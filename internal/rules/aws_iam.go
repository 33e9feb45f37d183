package rules

import (
	"encoding/json"
	"fmt"

	"github.com/djeeteg007/tf-audit/internal/tfparse"
)

func iamRules() []Rule {
	return []Rule{
		{
			ID:           "AWS-IAM-001",
			AppliesTo:    []string{"aws_iam_policy", "aws_iam_role_policy", "aws_iam_user_policy", "aws_iam_group_policy"},
			Severity:     SeverityCritical,
			Remediation:  "Replace wildcard actions and resources with the minimal set the workload needs.",
			KnowledgeRef: "kb/aws/iam-least-privilege",
			Check:        checkIAMWildcard,
		},
	}
}

// iamPolicyDoc is the subset of an IAM policy document the rule inspects.
type iamPolicyDoc struct {
	Statement statementList `json:"Statement"`
}

type iamStatement struct {
	Effect   string      `json:"Effect"`
	Action   stringOrSet `json:"Action"`
	Resource stringOrSet `json:"Resource"`
}

// statementList accepts Statement as either a single object or an array.
type statementList []iamStatement

func (s *statementList) UnmarshalJSON(data []byte) error {
	var list []iamStatement
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}
	var one iamStatement
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*s = statementList{one}
	return nil
}

type stringOrSet []string

func (s *stringOrSet) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*s = stringOrSet{one}
	return nil
}

func checkIAMWildcard(res tfparse.ResourceBlock, _ *ScanContext) ([]FindingDraft, error) {
	raw := res.AttrString("policy")
	if raw == "" {
		return nil, nil
	}

	var doc iamPolicyDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		// The policy is usually a jsonencode() expression or template the
		// extractor could not resolve; nothing to inspect.
		return nil, nil
	}

	var drafts []FindingDraft
	for _, stmt := range doc.Statement {
		if stmt.Effect != "Allow" {
			continue
		}
		if contains(stmt.Action, "*") && contains(stmt.Resource, "*") {
			drafts = append(drafts, FindingDraft{
				Message: fmt.Sprintf("%s allows Action \"*\" on Resource \"*\"", res.Address),
			})
			continue
		}
		for _, action := range stmt.Action {
			if len(action) > 2 && action[len(action)-2:] == ":*" {
				drafts = append(drafts, FindingDraft{
					Message: fmt.Sprintf("%s allows service-wide action %q", res.Address, action),
				})
			}
		}
	}
	return drafts, nil
}

func contains(list []string, item string) bool {
	for _, s := range list {
		if s == item {
			return true
		}
	}
	return false
}
