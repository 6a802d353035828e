// Package predicate provides the assertion vocabulary used by constraints.
//
// Predicates are small, serializable comparison descriptors rather than bare
// closures, so that suite definitions can be loaded from files and constraint
// messages can explain what was expected. Fn escapes the DSL for callers that
// need an arbitrary condition.
package predicate

import (
	"fmt"
)

// Predicate is a boolean condition over a numeric metric value.
type Predicate interface {
	// Test reports whether the value satisfies the condition.
	Test(value float64) bool

	// String describes the condition for constraint messages, phrased so it
	// reads after a metric name: "Age min" + " " + "> 0".
	String() string
}

type comparison struct {
	op        string
	threshold float64
}

func (c comparison) Test(value float64) bool {
	switch c.op {
	case "==":
		return value == c.threshold
	case ">":
		return value > c.threshold
	case ">=":
		return value >= c.threshold
	case "<":
		return value < c.threshold
	case "<=":
		return value <= c.threshold
	default:
		return false
	}
}

func (c comparison) String() string {
	return fmt.Sprintf("%s %g", c.op, c.threshold)
}

// EqualTo matches values equal to the threshold.
func EqualTo(threshold float64) Predicate {
	return comparison{op: "==", threshold: threshold}
}

// GreaterThan matches values strictly above the threshold.
func GreaterThan(threshold float64) Predicate {
	return comparison{op: ">", threshold: threshold}
}

// GreaterOrEqual matches values at or above the threshold.
func GreaterOrEqual(threshold float64) Predicate {
	return comparison{op: ">=", threshold: threshold}
}

// LessThan matches values strictly below the threshold.
func LessThan(threshold float64) Predicate {
	return comparison{op: "<", threshold: threshold}
}

// LessOrEqual matches values at or below the threshold.
func LessOrEqual(threshold float64) Predicate {
	return comparison{op: "<=", threshold: threshold}
}

type between struct {
	low, high float64
}

func (b between) Test(value float64) bool {
	return value >= b.low && value <= b.high
}

func (b between) String() string {
	return fmt.Sprintf("in [%g, %g]", b.low, b.high)
}

// Between matches values inside the inclusive [low, high] interval.
func Between(low, high float64) Predicate {
	return between{low: low, high: high}
}

// IsOne matches ratios of exactly 1.0; the default assertion for
// completeness, uniqueness and compliance constraints.
func IsOne() Predicate {
	return EqualTo(1)
}

type fn struct {
	test        func(float64) bool
	description string
}

func (f fn) Test(value float64) bool { return f.test(value) }

func (f fn) String() string {
	if f.description == "" {
		return "satisfies custom condition"
	}

	return f.description
}

// Fn wraps an arbitrary condition. The description appears in constraint
// messages in place of a comparison operator.
func Fn(description string, test func(float64) bool) Predicate {
	return fn{test: test, description: description}
}
