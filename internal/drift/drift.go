// Package drift classifies the resource changes of a Terraform plan JSON
// document (the `terraform show -json` format) independently of the rule
// engine.
package drift

import (
	"encoding/json"
	"fmt"

	"github.com/djeeteg007/tf-audit/internal/tfparse"
)

// Action is the simplified change category for one resource.
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionReplace Action = "replace"
	ActionNoop    Action = "no-op"
)

// ParseError reports a malformed plan document. The report assembler
// surfaces it inside the drift section instead of failing the report.
type ParseError struct {
	Detail string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing plan JSON: %s", e.Detail)
}

// plan mirrors the subset of the Terraform plan schema this analyzer reads.
type plan struct {
	ResourceChanges []resourceChange `json:"resource_changes"`
}

type resourceChange struct {
	Address      string `json:"address"`
	Type         string `json:"type"`
	Name         string `json:"name"`
	ProviderName string `json:"provider_name"`
	Change       change `json:"change"`
}

type change struct {
	Actions []string        `json:"actions"`
	Before  json.RawMessage `json:"before"`
	After   json.RawMessage `json:"after"`
}

// Change is one classified resource change with opaque before/after
// snapshots. Deep attribute diffing is a presentation concern and is left to
// callers.
type Change struct {
	Address string        `json:"address"`
	Type    string        `json:"type,omitempty"`
	Action  Action        `json:"action"`
	Before  tfparse.Value `json:"before"`
	After   tfparse.Value `json:"after"`
}

// Result is the full drift section of a report.
type Result struct {
	Counts  map[Action]int `json:"counts"`
	Changes []Change       `json:"changes"`
}

// Classify reduces a Terraform actions array to one Action. Precedence:
// create+delete means replace; a lone create or delete keeps its verb; any
// update present classifies as update; everything else (including read and
// an empty array) is a no-op.
func Classify(actions []string) Action {
	var hasCreate, hasDelete, hasUpdate bool
	for _, a := range actions {
		switch a {
		case "create":
			hasCreate = true
		case "delete":
			hasDelete = true
		case "update":
			hasUpdate = true
		}
	}
	switch {
	case hasCreate && hasDelete:
		return ActionReplace
	case hasCreate && !hasDelete && !hasUpdate:
		return ActionCreate
	case hasDelete && !hasCreate && !hasUpdate:
		return ActionDelete
	case hasUpdate:
		return ActionUpdate
	}
	return ActionNoop
}

// Diff parses plan JSON and classifies every resource change. A document
// that is not valid JSON or lacks the resource_changes key yields a
// ParseError.
func Diff(planJSON []byte) (*Result, error) {
	if len(planJSON) == 0 {
		return nil, &ParseError{Detail: "empty input"}
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(planJSON, &probe); err != nil {
		return nil, &ParseError{Detail: err.Error()}
	}
	if _, ok := probe["resource_changes"]; !ok {
		return nil, &ParseError{Detail: "missing resource_changes key"}
	}

	var p plan
	if err := json.Unmarshal(planJSON, &p); err != nil {
		return nil, &ParseError{Detail: err.Error()}
	}

	result := &Result{Counts: make(map[Action]int)}
	for _, rc := range p.ResourceChanges {
		action := Classify(rc.Change.Actions)

		before, err := tfparse.FromJSON(rc.Change.Before)
		if err != nil {
			return nil, &ParseError{Detail: fmt.Sprintf("%s: before: %v", rc.Address, err)}
		}
		after, err := tfparse.FromJSON(rc.Change.After)
		if err != nil {
			return nil, &ParseError{Detail: fmt.Sprintf("%s: after: %v", rc.Address, err)}
		}

		result.Counts[action]++
		result.Changes = append(result.Changes, Change{
			Address: rc.Address,
			Type:    rc.Type,
			Action:  action,
			Before:  before,
			After:   after,
		})
	}
	return result, nil
}
