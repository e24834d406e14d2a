// Package nwcondition implements the duck-typed condition dispatch of
// spec.md §4.2: a tagged comparator normalised from either operator
// symbol or its word synonym at parse time.
package nwcondition

import (
	"fmt"
)

// Condition is the normalised comparator a provider's value is checked
// against its threshold with.
type Condition int

const (
	Equal Condition = iota
	NotEqual
	GreaterThan
	LessThan
)

var symbols = map[string]Condition{
	"=":         Equal,
	"equals":    Equal,
	"!=":        NotEqual,
	"different": NotEqual,
	">":         GreaterThan,
	"greater":   GreaterThan,
	"<":         LessThan,
	"lower":     LessThan,
}

// Parse normalises an operator symbol or word synonym into a Condition.
func Parse(s string) (Condition, error) {
	c, ok := symbols[s]
	if !ok {
		return 0, fmt.Errorf("nwcondition: %q is not an allowed condition", s)
	}
	return c, nil
}

// MarshalJSON renders a Condition as its canonical symbol, so JSON
// consumers (the Control API, the queue action) see "=" rather than a
// bare integer.
func (c Condition) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

func (c Condition) String() string {
	switch c {
	case Equal:
		return "="
	case NotEqual:
		return "!="
	case GreaterThan:
		return ">"
	case LessThan:
		return "<"
	default:
		return "?"
	}
}

// Evaluate reports whether value conforms to the condition against
// threshold. Numeric operands (any combination of the Go numeric kinds
// decoded from YAML/JSON) compare by value; strings compare
// lexicographically; everything else falls back to equality/inequality
// only, since ordering is undefined. An error is returned if an
// ordering comparison (> or <) is attempted between operand types that
// cannot be ordered against each other.
func Evaluate(c Condition, value, threshold any) (bool, error) {
	if c == Equal || c == NotEqual {
		eq := equalValues(value, threshold)
		if c == Equal {
			return eq, nil
		}
		return !eq, nil
	}

	vf, vOK := asFloat(value)
	tf, tOK := asFloat(threshold)
	if vOK && tOK {
		switch c {
		case GreaterThan:
			return vf > tf, nil
		case LessThan:
			return vf < tf, nil
		}
	}

	vs, vIsStr := value.(string)
	ts, tIsStr := threshold.(string)
	if vIsStr && tIsStr {
		switch c {
		case GreaterThan:
			return vs > ts, nil
		case LessThan:
			return vs < ts, nil
		}
	}

	return false, fmt.Errorf("nwcondition: cannot order %T against %T for condition %s", value, threshold, c)
}

func equalValues(a, b any) bool {
	if af, aOK := asFloat(a); aOK {
		if bf, bOK := asFloat(b); bOK {
			return af == bf
		}
	}
	return a == b
}

// asFloat converts any of the numeric kinds YAML/JSON decoding produces
// into a float64 for homogeneous comparison.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
