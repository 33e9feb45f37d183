package rules

import (
	"fmt"
	"sort"
	"strings"
)

// RegistrationError reports a duplicate rule id. It can only occur while the
// registry is being built, never during a scan.
type RegistrationError struct {
	ID string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("rule %q is already registered", e.ID)
}

// Registry indexes rules by resource type for O(1) lookup. Provider
// wildcards ("aws_*") are indexed separately and unioned into every matching
// lookup. Lookup results preserve registration order.
type Registry struct {
	rules     []Rule
	byType    map[string][]int
	wildcards []int // indices of rules with at least one wildcard pattern
	order     map[string]int
}

func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[string][]int),
		order:  make(map[string]int),
	}
}

// Register adds a rule. A duplicate id yields a RegistrationError.
func (r *Registry) Register(rule Rule) error {
	if _, exists := r.order[rule.ID]; exists {
		return &RegistrationError{ID: rule.ID}
	}
	idx := len(r.rules)
	r.rules = append(r.rules, rule)
	r.order[rule.ID] = idx

	wildcard := false
	for _, pattern := range rule.AppliesTo {
		if strings.HasSuffix(pattern, "*") {
			wildcard = true
			continue
		}
		r.byType[pattern] = append(r.byType[pattern], idx)
	}
	if wildcard {
		r.wildcards = append(r.wildcards, idx)
	}
	return nil
}

// MustRegister is Register for the built-in catalogue, where a duplicate id
// is a programming error.
func (r *Registry) MustRegister(rule Rule) {
	if err := r.Register(rule); err != nil {
		panic(err)
	}
}

// RulesFor returns every rule applicable to the given resource type, in
// registration order.
func (r *Registry) RulesFor(resourceType string) []Rule {
	indices := append([]int(nil), r.byType[resourceType]...)
	for _, idx := range r.wildcards {
		if r.wildcardMatches(idx, resourceType) {
			indices = append(indices, idx)
		}
	}
	sort.Ints(indices)

	matched := make([]Rule, 0, len(indices))
	for _, idx := range indices {
		matched = append(matched, r.rules[idx])
	}
	return matched
}

func (r *Registry) wildcardMatches(idx int, resourceType string) bool {
	for _, pattern := range r.rules[idx].AppliesTo {
		if !strings.HasSuffix(pattern, "*") {
			continue
		}
		if strings.HasPrefix(resourceType, strings.TrimSuffix(pattern, "*")) {
			return true
		}
	}
	return false
}

// All returns every registered rule in registration order.
func (r *Registry) All() []Rule {
	return append([]Rule(nil), r.rules...)
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	return len(r.rules)
}

// RuleIndex returns the registration index for a rule id; findings sort by
// it to keep report ordering stable.
func (r *Registry) RuleIndex(id string) (int, bool) {
	idx, ok := r.order[id]
	return idx, ok
}

// Builtin returns a registry populated with the built-in catalogue in a
// fixed registration order.
func Builtin() *Registry {
	r := NewRegistry()
	for _, group := range [][]Rule{
		s3Rules(),
		securityGroupRules(),
		rdsRules(),
		iamRules(),
		kmsRules(),
		ebsRules(),
		azureRules(),
		gcpRules(),
		tagRules(), // wildcard rules run last as catch-all
	} {
		for _, rule := range group {
			r.MustRegister(rule)
		}
	}
	return r
}
