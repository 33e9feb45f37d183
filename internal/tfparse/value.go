package tfparse

import (
	"encoding/json"
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Kind discriminates the Value variants.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
)

// Value is a tagged union over the attribute shapes Terraform can express:
// scalar (null/bool/number/string), list, or map. Values are immutable once
// built; rules and the drift analyzer only read them.
type Value struct {
	kind Kind
	b    bool
	num  float64
	str  string
	list []Value
	obj  map[string]Value
}

func NullValue() Value              { return Value{kind: KindNull} }
func BoolValue(b bool) Value        { return Value{kind: KindBool, b: b} }
func NumberValue(n float64) Value   { return Value{kind: KindNumber, num: n} }
func StringValue(s string) Value    { return Value{kind: KindString, str: s} }
func ListValue(vs []Value) Value    { return Value{kind: KindList, list: vs} }
func MapValue(m map[string]Value) Value { return Value{kind: KindMap, obj: m} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsString returns the string payload; ok is false for non-string kinds.
func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

func (v Value) AsNumber() (float64, bool) {
	return v.num, v.kind == KindNumber
}

func (v Value) AsList() ([]Value, bool) {
	return v.list, v.kind == KindList
}

func (v Value) AsMap() (map[string]Value, bool) {
	return v.obj, v.kind == KindMap
}

// Get looks up a key on a map value.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	val, ok := v.obj[key]
	return val, ok
}

// Len returns the element count for lists and maps, zero otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.obj)
	}
	return 0
}

// MarshalJSON renders the value as plain JSON. Map keys are emitted in
// sorted order (encoding/json sorts map keys), which keeps serialized
// reports diff-stable.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		return json.Marshal(v.num)
	case KindString:
		return json.Marshal(v.str)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindMap:
		if v.obj == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.obj)
	}
	return nil, fmt.Errorf("unknown value kind %d", v.kind)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = FromInterface(raw)
	return nil
}

// FromJSON decodes a JSON document into a Value tree. A nil or literal
// "null" input yields a null value.
func FromJSON(data []byte) (Value, error) {
	if len(data) == 0 || string(data) == "null" {
		return NullValue(), nil
	}
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Value{}, fmt.Errorf("decoding value: %w", err)
	}
	return FromInterface(raw), nil
}

// FromInterface converts the generic result of encoding/json into a Value.
func FromInterface(raw interface{}) Value {
	switch t := raw.(type) {
	case nil:
		return NullValue()
	case bool:
		return BoolValue(t)
	case float64:
		return NumberValue(t)
	case json.Number:
		f, _ := t.Float64()
		return NumberValue(f)
	case string:
		return StringValue(t)
	case []interface{}:
		list := make([]Value, len(t))
		for i, item := range t {
			list[i] = FromInterface(item)
		}
		return ListValue(list)
	case map[string]interface{}:
		obj := make(map[string]Value, len(t))
		for k, item := range t {
			obj[k] = FromInterface(item)
		}
		return MapValue(obj)
	}
	return StringValue(fmt.Sprintf("%v", raw))
}

// fromCty converts an evaluated HCL expression result into a Value.
// Unknown values (unresolved references) come through as null.
func fromCty(cv cty.Value) Value {
	if cv.IsNull() || !cv.IsKnown() {
		return NullValue()
	}
	ty := cv.Type()
	switch {
	case ty == cty.Bool:
		return BoolValue(cv.True())
	case ty == cty.Number:
		f, _ := cv.AsBigFloat().Float64()
		return NumberValue(f)
	case ty == cty.String:
		return StringValue(cv.AsString())
	case ty.IsListType() || ty.IsSetType() || ty.IsTupleType():
		var list []Value
		for it := cv.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			list = append(list, fromCty(ev))
		}
		return ListValue(list)
	case ty.IsMapType() || ty.IsObjectType():
		obj := make(map[string]Value)
		for it := cv.ElementIterator(); it.Next(); {
			kv, ev := it.Element()
			obj[kv.AsString()] = fromCty(ev)
		}
		return MapValue(obj)
	}
	return StringValue(formatCty(cv))
}

func formatCty(cv cty.Value) string {
	if cv.Type() == cty.Number {
		bf := cv.AsBigFloat()
		return bf.Text('f', -1)
	}
	return fmt.Sprintf("%v", cv)
}
