package schema

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// Rule is a refinement applied after the base type check succeeds.
// Scalars see their decoded value (string, float64 or bool); arrays see
// their length as an int.
type Rule struct {
	Reason string
	ok     func(v any) bool
}

// NewRule builds a custom refinement.
func NewRule(reason string, ok func(v any) bool) Rule {
	return Rule{Reason: reason, ok: ok}
}

func applyRules(path string, value, raw any, rules []Rule, out *[]Violation) {
	for _, r := range rules {
		if r.ok(value) {
			continue
		}
		*out = append(*out, Violation{Path: path, Reason: r.Reason, Value: raw})
	}
}

// Positive requires a number strictly greater than zero.
func Positive() Rule {
	return NewRule("must be positive", func(v any) bool {
		f, ok := v.(float64)
		return !ok || f > 0
	})
}

// MinLen requires a string of at least n characters.
func MinLen(n int) Rule {
	return NewRule(fmt.Sprintf("must be at least %d characters", n), func(v any) bool {
		s, ok := v.(string)
		return !ok || utf8.RuneCountInString(s) >= n
	})
}

// MaxLen requires a string of at most n characters.
func MaxLen(n int) Rule {
	return NewRule(fmt.Sprintf("must be at most %d characters", n), func(v any) bool {
		s, ok := v.(string)
		return !ok || utf8.RuneCountInString(s) <= n
	})
}

// Len requires a string of exactly n characters.
func Len(n int) Rule {
	return NewRule(fmt.Sprintf("must be exactly %d characters", n), func(v any) bool {
		s, ok := v.(string)
		return !ok || utf8.RuneCountInString(s) == n
	})
}

// MinItems requires an array with at least n elements.
func MinItems(n int) Rule {
	return NewRule(fmt.Sprintf("must contain at least %d items", n), func(v any) bool {
		l, ok := v.(int)
		return !ok || l >= n
	})
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Email requires a plausible e-mail address.
func Email() Rule {
	return Pattern(emailPattern, "must be a valid email")
}

// Pattern requires a string matching re.
func Pattern(re *regexp.Regexp, reason string) Rule {
	return NewRule(reason, func(v any) bool {
		s, ok := v.(string)
		return !ok || re.MatchString(s)
	})
}
