// Package check defines data quality checks: leveled groups of declarative
// constraints over metrics.
//
// A check is built fluently, constraint by constraint. Builders mutate the
// check and return it, so call chains read as one sentence:
//
//	check.New(check.LevelError, "integrity").
//		HasSize(predicate.EqualTo(4)).
//		IsComplete("Name").
//		HasMin("Age", predicate.GreaterThan(0)).Where("Age IS NOT NULL")
//
// Evaluation never queries data. The analysis runner computes the metrics all
// checks of a suite require; each check then resolves its constraints against
// the resulting metric table.
package check

import (
	"fmt"
	"strings"

	"github.com/veridata/veridata/internal/analyzer"
	"github.com/veridata/veridata/internal/metric"
	"github.com/veridata/veridata/pkg/predicate"
)

// Level is the declared severity of a check.
type Level int

// Check levels.
const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

// String implements fmt.Stringer.
func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Status is the aggregate outcome of one evaluated check.
type Status int

// Check outcomes, ordered by severity.
const (
	StatusSuccess Status = iota
	StatusWarning
	StatusError
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusWarning:
		return "warning"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result is one evaluated check: its aggregate status plus the constraint
// results in declaration order.
type Result struct {
	Description string
	Level       Level
	Status      Status
	Constraints []ConstraintResult
}

// Check is a leveled group of constraints built through the fluent API.
// Checks are not safe for concurrent mutation; build them up front, then
// share them read-only.
type Check struct {
	level       Level
	description string
	constraints []Constraint

	// lastFactory rebuilds the most recent constraint with a row filter, so
	// Where can retrofit the filter onto the preceding builder call.
	lastFactory func(where string) Constraint
}

// New creates an empty check with the given severity and report description.
func New(level Level, description string) *Check {
	return &Check{level: level, description: description}
}

// Level returns the declared severity.
func (c *Check) Level() Level { return c.level }

// Description returns the report description.
func (c *Check) Description() string { return c.description }

// Constraints returns the constraints in declaration order.
func (c *Check) Constraints() []Constraint {
	out := make([]Constraint, len(c.constraints))
	copy(out, c.constraints)

	return out
}

// Analyzers collects the statistics required by all constraints of this
// check. Duplicates are fine; the runner deduplicates by identity.
func (c *Check) Analyzers() []analyzer.Analyzer {
	var all []analyzer.Analyzer
	for _, cons := range c.constraints {
		all = append(all, cons.Analyzers()...)
	}

	return all
}

// Evaluate resolves every constraint against the metric table and aggregates
// the outcomes. A failed constraint degrades the check to its declared level;
// a constraint error always degrades it to error, whatever the level, because
// an unevaluated assertion proves nothing.
func (c *Check) Evaluate(table *metric.Table) Result {
	result := Result{
		Description: c.description,
		Level:       c.level,
		Status:      StatusSuccess,
		Constraints: make([]ConstraintResult, 0, len(c.constraints)),
	}

	for _, cons := range c.constraints {
		evaluated := cons.Evaluate(table)
		result.Constraints = append(result.Constraints, evaluated)

		switch evaluated.Status {
		case ConstraintError:
			result.Status = StatusError
		case ConstraintFailure:
			if result.Status != StatusError {
				result.Status = maxStatus(result.Status, c.failureStatus())
			}
		case ConstraintSuccess:
		}
	}

	return result
}

func (c *Check) failureStatus() Status {
	if c.level == LevelError {
		return StatusError
	}

	return StatusWarning
}

func maxStatus(a, b Status) Status {
	if b > a {
		return b
	}

	return a
}

// AddConstraint appends a prebuilt constraint. Where cannot retrofit a filter
// onto constraints added this way.
func (c *Check) AddConstraint(cons Constraint) *Check {
	c.constraints = append(c.constraints, cons)
	c.lastFactory = nil

	return c
}

// Where restricts the most recent constraint to rows matching the given SQL
// predicate. Calling it without a preceding builder call is a no-op.
func (c *Check) Where(where string) *Check {
	if c.lastFactory == nil || len(c.constraints) == 0 {
		return c
	}

	c.constraints[len(c.constraints)-1] = c.lastFactory(where)

	return c
}

func (c *Check) add(factory func(where string) Constraint) *Check {
	c.constraints = append(c.constraints, factory(""))
	c.lastFactory = factory

	return c
}

// HasSize asserts a predicate over the row count.
func (c *Check) HasSize(p predicate.Predicate) *Check {
	return c.add(func(where string) Constraint {
		return newAnalysisConstraint(analyzer.NewSize(where), p, "size", "")
	})
}

// IsComplete asserts the column has no NULL values.
func (c *Check) IsComplete(column string) *Check {
	return c.HasCompleteness(column, predicate.IsOne())
}

// HasCompleteness asserts a predicate over the fraction of non-NULL values.
func (c *Check) HasCompleteness(column string, p predicate.Predicate) *Check {
	return c.add(func(where string) Constraint {
		return newAnalysisConstraint(
			analyzer.NewCompleteness(column, where), p, column+" completeness", "",
		)
	})
}

// HasMin asserts a predicate over the column minimum.
func (c *Check) HasMin(column string, p predicate.Predicate) *Check {
	return c.add(func(where string) Constraint {
		return newAnalysisConstraint(analyzer.NewMinimum(column, where), p, column+" min", "")
	})
}

// HasMax asserts a predicate over the column maximum.
func (c *Check) HasMax(column string, p predicate.Predicate) *Check {
	return c.add(func(where string) Constraint {
		return newAnalysisConstraint(analyzer.NewMaximum(column, where), p, column+" max", "")
	})
}

// HasMean asserts a predicate over the column mean.
func (c *Check) HasMean(column string, p predicate.Predicate) *Check {
	return c.add(func(where string) Constraint {
		return newAnalysisConstraint(analyzer.NewMean(column, where), p, column+" mean", "")
	})
}

// HasSum asserts a predicate over the column sum.
func (c *Check) HasSum(column string, p predicate.Predicate) *Check {
	return c.add(func(where string) Constraint {
		return newAnalysisConstraint(analyzer.NewSum(column, where), p, column+" sum", "")
	})
}

// HasStandardDeviation asserts a predicate over the population standard
// deviation of the column.
func (c *Check) HasStandardDeviation(column string, p predicate.Predicate) *Check {
	return c.add(func(where string) Constraint {
		return newAnalysisConstraint(
			analyzer.NewStandardDeviation(column, where), p, column+" stddev", "",
		)
	})
}

// HasMinLength asserts a predicate over the minimum string length of the
// column.
func (c *Check) HasMinLength(column string, p predicate.Predicate) *Check {
	return c.add(func(where string) Constraint {
		return newAnalysisConstraint(
			analyzer.NewMinLength(column, where), p, column+" min length", "",
		)
	})
}

// HasMaxLength asserts a predicate over the maximum string length of the
// column.
func (c *Check) HasMaxLength(column string, p predicate.Predicate) *Check {
	return c.add(func(where string) Constraint {
		return newAnalysisConstraint(
			analyzer.NewMaxLength(column, where), p, column+" max length", "",
		)
	})
}

// IsUnique asserts every value combination of the columns occurs exactly
// once.
func (c *Check) IsUnique(columns ...string) *Check {
	return c.HasUniqueness(columns, predicate.IsOne())
}

// HasUniqueness asserts a predicate over the fraction of rows whose value
// combination occurs exactly once.
func (c *Check) HasUniqueness(columns []string, p predicate.Predicate) *Check {
	return c.add(func(where string) Constraint {
		return newAnalysisConstraint(
			analyzer.NewUniqueness(columns, where), p,
			strings.Join(columns, ",")+" uniqueness", "",
		)
	})
}

// IsDistinct asserts every row carries a distinct value combination of the
// columns.
func (c *Check) IsDistinct(columns ...string) *Check {
	return c.HasDistinctness(columns, predicate.IsOne())
}

// HasDistinctness asserts a predicate over the fraction of distinct value
// combinations per row.
func (c *Check) HasDistinctness(columns []string, p predicate.Predicate) *Check {
	return c.add(func(where string) Constraint {
		return newAnalysisConstraint(
			analyzer.NewDistinctness(columns, where), p,
			strings.Join(columns, ",")+" distinctness", "",
		)
	})
}

// HasUniqueValueRatio asserts a predicate over unique values per distinct
// value.
func (c *Check) HasUniqueValueRatio(columns []string, p predicate.Predicate) *Check {
	return c.add(func(where string) Constraint {
		return newAnalysisConstraint(
			analyzer.NewUniqueValueRatio(columns, where), p,
			strings.Join(columns, ",")+" unique value ratio", "",
		)
	})
}

// HasEntropy asserts a predicate over the Shannon entropy of the column's
// value distribution.
func (c *Check) HasEntropy(column string, p predicate.Predicate) *Check {
	return c.add(func(where string) Constraint {
		return newAnalysisConstraint(analyzer.NewEntropy(column, where), p, column+" entropy", "")
	})
}

// IsApproxDistinct asserts the estimated fraction of distinct values of the
// column is exactly one.
func (c *Check) IsApproxDistinct(column string) *Check {
	return c.HasApproxDistinctness(column, predicate.IsOne())
}

// HasApproxDistinctness asserts a predicate over the estimated fraction of
// distinct values.
func (c *Check) HasApproxDistinctness(column string, p predicate.Predicate) *Check {
	return c.add(func(where string) Constraint {
		return newAnalysisConstraint(
			analyzer.NewApproxDistinctness(column, where), p,
			column+" approx distinctness", "",
		)
	})
}

// Satisfies asserts a predicate over the fraction of rows matching an
// arbitrary SQL condition. The name identifies the rule in reports.
func (c *Check) Satisfies(name, expression string, p predicate.Predicate) *Check {
	return c.add(func(where string) Constraint {
		return newAnalysisConstraint(
			analyzer.NewCompliance(name, expression, where), p, name, "",
		)
	})
}

// IsContainedIn asserts every non-NULL value of the column is one of the
// allowed values.
func (c *Check) IsContainedIn(column string, allowed ...string) *Check {
	quoted := make([]string, 0, len(allowed))
	for _, v := range allowed {
		quoted = append(quoted, "'"+strings.ReplaceAll(v, "'", "''")+"'")
	}

	name := fmt.Sprintf("%s contained in [%s]", column, strings.Join(allowed, ","))
	expression := fmt.Sprintf("%s IS NULL OR %s IN (%s)", column, column, strings.Join(quoted, ", "))

	return c.add(func(where string) Constraint {
		return newAnalysisConstraint(
			analyzer.NewCompliance(name, expression, where), predicate.IsOne(), name,
			"NULL values count as contained; add IsComplete to forbid them",
		)
	})
}

// IsContainedInRange asserts every non-NULL value of the numeric column lies
// in the inclusive [low, high] interval.
func (c *Check) IsContainedInRange(column string, low, high float64) *Check {
	name := fmt.Sprintf("%s contained in [%g, %g]", column, low, high)
	expression := fmt.Sprintf("%s IS NULL OR (%s >= %g AND %s <= %g)", column, column, low, column, high)

	return c.add(func(where string) Constraint {
		return newAnalysisConstraint(
			analyzer.NewCompliance(name, expression, where), predicate.IsOne(), name, "",
		)
	})
}

// IsNonNegative asserts every non-NULL value of the numeric column is at
// least zero.
func (c *Check) IsNonNegative(column string) *Check {
	name := column + " is non-negative"
	expression := fmt.Sprintf("%s IS NULL OR %s >= 0", column, column)

	return c.add(func(where string) Constraint {
		return newAnalysisConstraint(
			analyzer.NewCompliance(name, expression, where), predicate.IsOne(), name, "",
		)
	})
}

// IsPositive asserts every non-NULL value of the numeric column is strictly
// positive.
func (c *Check) IsPositive(column string) *Check {
	name := column + " is positive"
	expression := fmt.Sprintf("%s IS NULL OR %s > 0", column, column)

	return c.add(func(where string) Constraint {
		return newAnalysisConstraint(
			analyzer.NewCompliance(name, expression, where), predicate.IsOne(), name, "",
		)
	})
}

// HasPattern asserts a predicate over the fraction of values fully matching
// the regular expression.
func (c *Check) HasPattern(column, pattern string, p predicate.Predicate) *Check {
	return c.add(func(where string) Constraint {
		return newAnalysisConstraint(
			analyzer.NewPatternMatch(column, pattern, where), p,
			column+" pattern match", "",
		)
	})
}

// ContainsEmail asserts every value of the column is an e-mail address.
func (c *Check) ContainsEmail(column string) *Check {
	return c.HasPattern(column, analyzer.PatternEmail, predicate.IsOne())
}

// ContainsURL asserts every value of the column is a URL.
func (c *Check) ContainsURL(column string) *Check {
	return c.HasPattern(column, analyzer.PatternURL, predicate.IsOne())
}

// ContainsCreditCardNumber asserts every value of the column is a credit
// card number.
func (c *Check) ContainsCreditCardNumber(column string) *Check {
	return c.HasPattern(column, analyzer.PatternCreditCard, predicate.IsOne())
}

// HasSchema asserts the relation schema equals the expected
// column -> declared-type mapping exactly.
func (c *Check) HasSchema(expected map[string]string) *Check {
	return c.AddConstraint(newSchemaConstraint(expected))
}
