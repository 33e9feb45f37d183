package render

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/djeeteg007/tf-audit/internal/tfparse"
)

// attrDiff is one top-level attribute difference between the before and
// after snapshots of a drift change.
type attrDiff struct {
	Path   string
	Before string
	After  string
}

func (d attrDiff) String() string {
	return fmt.Sprintf("%s: %s → %s", d.Path, d.Before, d.After)
}

// extractDiffs computes top-level attribute differences between before and
// after value trees. Returns at most maxDiffs entries, in sorted key order.
func extractDiffs(before, after tfparse.Value, maxDiffs int) []attrDiff {
	beforeMap, _ := before.AsMap()
	afterMap, _ := after.AsMap()
	if beforeMap == nil && afterMap == nil {
		return nil
	}

	allKeys := make(map[string]bool)
	for k := range beforeMap {
		allKeys[k] = true
	}
	for k := range afterMap {
		allKeys[k] = true
	}
	sortedKeys := make([]string, 0, len(allKeys))
	for k := range allKeys {
		sortedKeys = append(sortedKeys, k)
	}
	sort.Strings(sortedKeys)

	var diffs []attrDiff
	for _, key := range sortedKeys {
		if maxDiffs > 0 && len(diffs) >= maxDiffs {
			break
		}

		bVal, bOk := beforeMap[key]
		aVal, aOk := afterMap[key]

		if !bOk {
			diffs = append(diffs, attrDiff{Path: key, Before: "(not set)", After: formatValue(aVal)})
			continue
		}
		if !aOk {
			diffs = append(diffs, attrDiff{Path: key, Before: formatValue(bVal), After: "(removed)"})
			continue
		}

		bJSON, _ := json.Marshal(bVal)
		aJSON, _ := json.Marshal(aVal)
		if string(bJSON) != string(aJSON) {
			diffs = append(diffs, attrDiff{Path: key, Before: formatValue(bVal), After: formatValue(aVal)})
		}
	}
	return diffs
}

func formatValue(v tfparse.Value) string {
	switch v.Kind() {
	case tfparse.KindNull:
		return "null"
	case tfparse.KindString:
		s, _ := v.AsString()
		return fmt.Sprintf("%q", s)
	default:
		out, err := json.Marshal(v)
		if err != nil {
			return "?"
		}
		return string(out)
	}
}
