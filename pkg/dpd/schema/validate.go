package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Violation reasons.
const (
	ReasonMissing   = "missing"
	ReasonWrongType = "wrong type"
	ReasonOutOfEnum = "out of enum"
)

// Violation describes one field that does not satisfy a contract.
type Violation struct {
	Path   string
	Reason string
	Detail string
	Value  any
}

func (v Violation) String() string {
	path := v.Path
	if path == "" {
		path = "(root)"
	}
	if v.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", path, v.Reason, v.Detail)
	}
	return fmt.Sprintf("%s: %s", path, v.Reason)
}

// Failure is returned when a value does not satisfy its contract.
type Failure struct {
	Violations []Violation
}

func (f *Failure) Error() string {
	parts := make([]string, len(f.Violations))
	for i, v := range f.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("%d schema violation(s): %s", len(f.Violations), strings.Join(parts, "; "))
}

// Validate checks raw against t and returns every violation found.
// An empty result means raw conforms. Validate never modifies raw.
func Validate(t Type, raw any) []Violation {
	var out []Violation
	if raw == nil {
		return []Violation{{Reason: ReasonMissing}}
	}
	t.check("", raw, &out)
	return out
}

// Decode validates raw against t and, only if it conforms, decodes it into
// a T using the json struct tags of T. Keys match tags exactly.
func Decode[T any](t Type, raw any) (T, error) {
	var zero T
	if vs := Validate(t, raw); len(vs) > 0 {
		return zero, &Failure{Violations: vs}
	}

	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:   "json",
		MatchName: func(key, field string) bool { return key == field },
		Result:    &out,
	})
	if err != nil {
		return zero, fmt.Errorf("creating decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return zero, &Failure{Violations: []Violation{{
			Reason: ReasonWrongType,
			Detail: err.Error(),
		}}}
	}
	return out, nil
}

// Encode converts a typed value into a generic tree (maps, slices, strings,
// float64 and bool) and validates the tree against t.
func Encode(t Type, v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding value: %w", err)
	}
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("decoding tree: %w", err)
	}
	if vs := Validate(t, tree); len(vs) > 0 {
		return nil, &Failure{Violations: vs}
	}
	return tree, nil
}

// Check reports whether a typed value satisfies t.
func Check(t Type, v any) error {
	_, err := Encode(t, v)
	return err
}
