// Package schema declares shape contracts for DPD payloads and validates
// untyped values against them.
//
// A contract is built from the type constructors in this package (String,
// Number, Object, Array, ...). Validation walks the whole value and reports
// every violation it finds; it never converts one wire type into another.
package schema

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"
)

// Type is a shape contract.
type Type interface {
	// Name returns a short human-readable name used in diagnostics.
	Name() string
	check(path string, v any, out *[]Violation)
}

// Field is one member of an Object contract.
type Field struct {
	Key      string
	Type     Type
	Required bool
}

// Required declares a field that must be present and non-nil.
func Required(key string, t Type) Field {
	return Field{Key: key, Type: t, Required: true}
}

// Optional declares a field that may be absent or nil.
func Optional(key string, t Type) Field {
	return Field{Key: key, Type: t}
}

type kind int

const (
	kindString kind = iota
	kindNumber
	kindInteger
	kindBool
)

func (k kind) String() string {
	switch k {
	case kindString:
		return "string"
	case kindNumber:
		return "number"
	case kindInteger:
		return "integer"
	case kindBool:
		return "boolean"
	}
	return "unknown"
}

type scalarType struct {
	kind  kind
	rules []Rule
}

// String accepts Go strings only.
func String(rules ...Rule) Type { return &scalarType{kind: kindString, rules: rules} }

// Number accepts any Go integer or floating point value.
func Number(rules ...Rule) Type { return &scalarType{kind: kindNumber, rules: rules} }

// Integer accepts integers and floats without a fractional part.
func Integer(rules ...Rule) Type { return &scalarType{kind: kindInteger, rules: rules} }

// Bool accepts Go booleans only.
func Bool() Type { return &scalarType{kind: kindBool} }

func (s *scalarType) Name() string { return s.kind.String() }

func (s *scalarType) check(path string, v any, out *[]Violation) {
	var value any
	ok := false
	switch s.kind {
	case kindString:
		value, ok = v.(string)
	case kindBool:
		value, ok = v.(bool)
	case kindNumber:
		value, ok = toFloat(v)
	case kindInteger:
		var f float64
		f, ok = toFloat(v)
		if ok && (math.IsInf(f, 0) || math.Trunc(f) != f) {
			ok = false
		}
		value = f
	}
	if !ok {
		*out = append(*out, wrongType(path, s.Name(), v))
		return
	}
	applyRules(path, value, v, s.rules, out)
}

type enumType struct {
	values []string
}

// Enum accepts one of the given strings.
func Enum(values ...string) Type {
	return &enumType{values: values}
}

func (e *enumType) Name() string { return "enum(" + strings.Join(e.values, "|") + ")" }

func (e *enumType) check(path string, v any, out *[]Violation) {
	s, ok := v.(string)
	if !ok {
		*out = append(*out, wrongType(path, "string", v))
		return
	}
	if !slices.Contains(e.values, s) {
		*out = append(*out, Violation{
			Path:   path,
			Reason: ReasonOutOfEnum,
			Detail: fmt.Sprintf("expected one of %s", strings.Join(e.values, ", ")),
			Value:  v,
		})
	}
}

type arrayType struct {
	elem  Type
	rules []Rule
}

// Array accepts any Go slice or array whose elements satisfy elem.
func Array(elem Type, rules ...Rule) Type {
	return &arrayType{elem: elem, rules: rules}
}

func (a *arrayType) Name() string { return "array of " + a.elem.Name() }

func (a *arrayType) check(path string, v any, out *[]Violation) {
	rv := reflect.ValueOf(v)
	if v == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		*out = append(*out, wrongType(path, "array", v))
		return
	}
	applyRules(path, rv.Len(), v, a.rules, out)
	for i := 0; i < rv.Len(); i++ {
		elemPath := fmt.Sprintf("%s[%d]", path, i)
		item := rv.Index(i).Interface()
		if item == nil {
			*out = append(*out, Violation{Path: elemPath, Reason: ReasonMissing})
			continue
		}
		a.elem.check(elemPath, item, out)
	}
}

// ObjectType is a contract for string-keyed maps.
type ObjectType struct {
	fields []Field
}

// Object accepts string-keyed maps. Keys not declared in fields are ignored.
func Object(fields ...Field) *ObjectType {
	return &ObjectType{fields: fields}
}

// Extend returns a new object contract with extra fields appended.
func (o *ObjectType) Extend(fields ...Field) *ObjectType {
	return &ObjectType{fields: append(slices.Clone(o.fields), fields...)}
}

func (o *ObjectType) Name() string { return "object" }

func (o *ObjectType) check(path string, v any, out *[]Violation) {
	m, ok := toMap(v)
	if !ok {
		*out = append(*out, wrongType(path, "object", v))
		return
	}
	for _, f := range o.fields {
		fieldPath := join(path, f.Key)
		val, present := m[f.Key]
		if !present || val == nil {
			if f.Required {
				*out = append(*out, Violation{Path: fieldPath, Reason: ReasonMissing})
			}
			continue
		}
		f.Type.check(fieldPath, val, out)
	}
}

type anyType struct{}

// Any accepts every non-nil value.
func Any() Type { return anyType{} }

func (anyType) Name() string { return "any" }

func (anyType) check(string, any, *[]Violation) {}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func wrongType(path, expected string, v any) Violation {
	return Violation{
		Path:   path,
		Reason: ReasonWrongType,
		Detail: fmt.Sprintf("expected %s, got %s", expected, describe(v)),
		Value:  v,
	}
}

func describe(v any) string {
	if v == nil {
		return "null"
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func toMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	m := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		m[iter.Key().String()] = iter.Value().Interface()
	}
	return m, true
}
