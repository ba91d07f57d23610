// Package models defines the wire shapes of the ingested artifacts and the
// normalized records the pipeline produces from them.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Value is one attribute value: a scalar, a list, or a mapping of further
// values. It wraps cty.Value so consumers switch on the value's type rather
// than reflecting over bare interfaces, and it round-trips as plain JSON.
type Value struct {
	cty.Value
}

// Val wraps a cty value.
func Val(v cty.Value) Value { return Value{Value: v} }

// NullValue is the JSON-null attribute value.
func NullValue() Value { return Value{Value: cty.NullVal(cty.DynamicPseudoType)} }

// IsSet reports whether the value is present and non-null.
func (v Value) IsSet() bool {
	return v.Value != cty.NilVal && !v.Value.IsNull()
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.Value == cty.NilVal || v.Value.IsNull() {
		return []byte("null"), nil
	}
	return json.Marshal(ValueToGo(v.Value))
}

func (v *Value) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		v.Value = cty.NullVal(cty.DynamicPseudoType)
		return nil
	}
	ty, err := ctyjson.ImpliedType(data)
	if err != nil {
		return fmt.Errorf("cannot determine value type: %w", err)
	}
	val, err := ctyjson.Unmarshal(data, ty)
	if err != nil {
		return err
	}
	v.Value = val
	return nil
}

// ValueToGo converts a cty value into the equivalent encoding/json-friendly
// Go representation. Null and unknown values become nil.
func ValueToGo(v cty.Value) any {
	if v == cty.NilVal || v.IsNull() || !v.IsKnown() {
		return nil
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString()
	case ty == cty.Bool:
		return v.True()
	case ty == cty.Number:
		return json.Number(v.AsBigFloat().Text('f', -1))
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			out[k.AsString()] = ValueToGo(ev)
		}
		return out
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			out = append(out, ValueToGo(ev))
		}
		return out
	default:
		return nil
	}
}
