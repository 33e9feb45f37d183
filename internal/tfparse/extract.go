package tfparse

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// ResourceBlock is one resource or data declaration extracted from a
// configuration file. Address is derived from mode + type + name only, so the
// same input always produces the same address.
type ResourceBlock struct {
	Address    string           `json:"address"`
	Mode       string           `json:"mode"` // "managed" or "data"
	Type       string           `json:"type"`
	Name       string           `json:"name"`
	Provider   string           `json:"provider"`
	Attributes map[string]Value `json:"attributes"`
	File       string           `json:"file"`
	LineStart  int              `json:"line_start"`
	LineEnd    int              `json:"line_end"`
}

// ParseError reports a file whose configuration could not be parsed. The
// scanner converts it into a synthetic finding instead of aborting the run.
type ParseError struct {
	File   string
	Detail string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %s", e.File, e.Detail)
}

// Parse extracts all resource and data blocks from one configuration file.
// Both HCL (.tf) and JSON syntax (.tf.json) are supported. Output order is
// declaration order for HCL and sorted type/name order for JSON, so identical
// input always yields an identical block list.
func Parse(path string, src []byte) ([]ResourceBlock, error) {
	if strings.HasSuffix(path, ".tf.json") {
		return parseJSON(path, src)
	}
	return parseHCL(path, src)
}

func parseHCL(path string, src []byte) ([]ResourceBlock, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, path)
	if diags.HasErrors() {
		return nil, &ParseError{File: path, Detail: diags.Error()}
	}

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, &ParseError{File: path, Detail: "unexpected body type"}
	}

	var blocks []ResourceBlock
	for _, blk := range body.Blocks {
		if blk.Type != "resource" && blk.Type != "data" {
			continue
		}
		if len(blk.Labels) != 2 {
			continue
		}

		mode := "managed"
		address := blk.Labels[0] + "." + blk.Labels[1]
		if blk.Type == "data" {
			mode = "data"
			address = "data." + address
		}

		blocks = append(blocks, ResourceBlock{
			Address:    address,
			Mode:       mode,
			Type:       blk.Labels[0],
			Name:       blk.Labels[1],
			Provider:   providerOf(blk.Labels[0]),
			Attributes: extractBody(blk.Body, src),
			File:       path,
			LineStart:  blk.DefRange().Start.Line,
			LineEnd:    blk.Body.SrcRange.End.Line,
		})
	}
	return blocks, nil
}

// extractBody converts an hclsyntax body into an attribute map. Expressions
// are evaluated without a context; anything that needs variables or functions
// falls back to its raw source text. Repeated nested blocks collect into a
// list of maps, matching Terraform's JSON representation.
func extractBody(body *hclsyntax.Body, src []byte) map[string]Value {
	attrs := make(map[string]Value, len(body.Attributes)+len(body.Blocks))

	for name, attr := range body.Attributes {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() || !val.IsWhollyKnown() {
			raw := string(attr.Expr.Range().SliceBytes(src))
			attrs[name] = StringValue(strings.TrimSpace(raw))
			continue
		}
		attrs[name] = fromCty(val)
	}

	for _, blk := range body.Blocks {
		nested := MapValue(extractBody(blk.Body, src))
		existing, ok := attrs[blk.Type]
		if !ok {
			attrs[blk.Type] = ListValue([]Value{nested})
			continue
		}
		if list, isList := existing.AsList(); isList {
			attrs[blk.Type] = ListValue(append(list, nested))
		}
	}

	return attrs
}

// parseJSON handles Terraform's JSON configuration syntax:
// {"resource": {"aws_s3_bucket": {"logs": {...}}}, "data": {...}}.
// The JSON decoder gives no positions, so blocks report line 1.
func parseJSON(path string, src []byte) ([]ResourceBlock, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(src, &doc); err != nil {
		return nil, &ParseError{File: path, Detail: err.Error()}
	}

	var blocks []ResourceBlock
	for _, section := range []string{"resource", "data"} {
		raw, ok := doc[section]
		if !ok {
			continue
		}
		var byType map[string]map[string]json.RawMessage
		if err := json.Unmarshal(raw, &byType); err != nil {
			return nil, &ParseError{File: path, Detail: fmt.Sprintf("%s section: %v", section, err)}
		}

		types := make([]string, 0, len(byType))
		for t := range byType {
			types = append(types, t)
		}
		sort.Strings(types)

		for _, t := range types {
			names := make([]string, 0, len(byType[t]))
			for n := range byType[t] {
				names = append(names, n)
			}
			sort.Strings(names)

			for _, n := range names {
				attrsVal, err := FromJSON(byType[t][n])
				if err != nil {
					return nil, &ParseError{File: path, Detail: fmt.Sprintf("%s.%s: %v", t, n, err)}
				}
				attrs, _ := attrsVal.AsMap()

				mode := "managed"
				address := t + "." + n
				if section == "data" {
					mode = "data"
					address = "data." + address
				}

				blocks = append(blocks, ResourceBlock{
					Address:    address,
					Mode:       mode,
					Type:       t,
					Name:       n,
					Provider:   providerOf(t),
					Attributes: attrs,
					File:       path,
					LineStart:  1,
					LineEnd:    1,
				})
			}
		}
	}
	return blocks, nil
}

// providerOf derives the provider short name from a resource type prefix,
// e.g. aws_s3_bucket -> aws, google_storage_bucket -> google.
func providerOf(resourceType string) string {
	if i := strings.Index(resourceType, "_"); i > 0 {
		return resourceType[:i]
	}
	return resourceType
}

// Attr returns a top-level attribute of the block.
func (rb ResourceBlock) Attr(name string) (Value, bool) {
	v, ok := rb.Attributes[name]
	return v, ok
}

// AttrString returns a top-level string attribute, or "" when absent or not
// a string.
func (rb ResourceBlock) AttrString(name string) string {
	if v, ok := rb.Attributes[name]; ok {
		if s, isStr := v.AsString(); isStr {
			return s
		}
	}
	return ""
}

// AttrBool returns a top-level bool attribute and whether it was present as
// a bool.
func (rb ResourceBlock) AttrBool(name string) (bool, bool) {
	if v, ok := rb.Attributes[name]; ok {
		return v.AsBool()
	}
	return false, false
}

// NestedBlocks returns the nested block bodies collected under name, e.g.
// the ingress blocks of a security group.
func (rb ResourceBlock) NestedBlocks(name string) []Value {
	v, ok := rb.Attributes[name]
	if !ok {
		return nil
	}
	if list, isList := v.AsList(); isList {
		return list
	}
	if v.Kind() == KindMap {
		return []Value{v}
	}
	return nil
}
