package suitespec

import (
	"fmt"

	"github.com/veridata/veridata/internal/check"
)

// ruleBuilder appends one rule's constraint to a check under construction.
type ruleBuilder func(c *check.Check, r Rule) error

// ruleRegistry maps declarative rule types onto the fluent check API. Rules
// that accept an assertion default it to == 1, matching the fluent Is*
// shorthands.
var ruleRegistry = map[string]ruleBuilder{
	"has_size": func(c *check.Check, r Rule) error {
		p, err := r.Assertion.predicate()
		if err != nil {
			return err
		}

		c.HasSize(p)

		return nil
	},
	"is_complete": columnRule(func(c *check.Check, r Rule) { c.IsComplete(r.Column) }),
	"has_completeness": columnAssertionRule(func(c *check.Check, r Rule) error {
		p, err := r.Assertion.predicate()
		if err != nil {
			return err
		}

		c.HasCompleteness(r.Column, p)

		return nil
	}),
	"has_min": columnAssertionRule(func(c *check.Check, r Rule) error {
		p, err := r.Assertion.predicate()
		if err != nil {
			return err
		}

		c.HasMin(r.Column, p)

		return nil
	}),
	"has_max": columnAssertionRule(func(c *check.Check, r Rule) error {
		p, err := r.Assertion.predicate()
		if err != nil {
			return err
		}

		c.HasMax(r.Column, p)

		return nil
	}),
	"has_mean": columnAssertionRule(func(c *check.Check, r Rule) error {
		p, err := r.Assertion.predicate()
		if err != nil {
			return err
		}

		c.HasMean(r.Column, p)

		return nil
	}),
	"has_sum": columnAssertionRule(func(c *check.Check, r Rule) error {
		p, err := r.Assertion.predicate()
		if err != nil {
			return err
		}

		c.HasSum(r.Column, p)

		return nil
	}),
	"has_standard_deviation": columnAssertionRule(func(c *check.Check, r Rule) error {
		p, err := r.Assertion.predicate()
		if err != nil {
			return err
		}

		c.HasStandardDeviation(r.Column, p)

		return nil
	}),
	"has_min_length": columnAssertionRule(func(c *check.Check, r Rule) error {
		p, err := r.Assertion.predicate()
		if err != nil {
			return err
		}

		c.HasMinLength(r.Column, p)

		return nil
	}),
	"has_max_length": columnAssertionRule(func(c *check.Check, r Rule) error {
		p, err := r.Assertion.predicate()
		if err != nil {
			return err
		}

		c.HasMaxLength(r.Column, p)

		return nil
	}),
	"is_unique": func(c *check.Check, r Rule) error {
		columns := r.groupColumns()
		if len(columns) == 0 {
			return errMissingField("columns")
		}

		c.IsUnique(columns...)

		return nil
	},
	"has_uniqueness": func(c *check.Check, r Rule) error {
		columns := r.groupColumns()
		if len(columns) == 0 {
			return errMissingField("columns")
		}

		p, err := r.Assertion.predicate()
		if err != nil {
			return err
		}

		c.HasUniqueness(columns, p)

		return nil
	},
	"has_distinctness": func(c *check.Check, r Rule) error {
		columns := r.groupColumns()
		if len(columns) == 0 {
			return errMissingField("columns")
		}

		p, err := r.Assertion.predicate()
		if err != nil {
			return err
		}

		c.HasDistinctness(columns, p)

		return nil
	},
	"has_unique_value_ratio": func(c *check.Check, r Rule) error {
		columns := r.groupColumns()
		if len(columns) == 0 {
			return errMissingField("columns")
		}

		p, err := r.Assertion.predicate()
		if err != nil {
			return err
		}

		c.HasUniqueValueRatio(columns, p)

		return nil
	},
	"has_entropy": columnAssertionRule(func(c *check.Check, r Rule) error {
		p, err := r.Assertion.predicate()
		if err != nil {
			return err
		}

		c.HasEntropy(r.Column, p)

		return nil
	}),
	"has_approx_distinctness": columnAssertionRule(func(c *check.Check, r Rule) error {
		p, err := r.Assertion.predicate()
		if err != nil {
			return err
		}

		c.HasApproxDistinctness(r.Column, p)

		return nil
	}),
	"satisfies": func(c *check.Check, r Rule) error {
		if r.Expression == "" {
			return errMissingField("expression")
		}

		name := r.Name
		if name == "" {
			name = r.Expression
		}

		p, err := r.Assertion.predicate()
		if err != nil {
			return err
		}

		c.Satisfies(name, r.Expression, p)

		return nil
	},
	"is_contained_in": columnRule(func(c *check.Check, r Rule) {
		c.IsContainedIn(r.Column, r.Values...)
	}),
	"is_in_range": func(c *check.Check, r Rule) error {
		if r.Column == "" {
			return errMissingField("column")
		}

		if r.Low == nil || r.High == nil {
			return errMissingField("low/high")
		}

		c.IsContainedInRange(r.Column, *r.Low, *r.High)

		return nil
	},
	"is_non_negative": columnRule(func(c *check.Check, r Rule) { c.IsNonNegative(r.Column) }),
	"is_positive":     columnRule(func(c *check.Check, r Rule) { c.IsPositive(r.Column) }),
	"has_pattern": func(c *check.Check, r Rule) error {
		if r.Column == "" {
			return errMissingField("column")
		}

		if r.Pattern == "" {
			return errMissingField("pattern")
		}

		p, err := r.Assertion.predicate()
		if err != nil {
			return err
		}

		c.HasPattern(r.Column, r.Pattern, p)

		return nil
	},
	"contains_email": columnRule(func(c *check.Check, r Rule) { c.ContainsEmail(r.Column) }),
	"contains_url":   columnRule(func(c *check.Check, r Rule) { c.ContainsURL(r.Column) }),
	"contains_credit_card": columnRule(func(c *check.Check, r Rule) {
		c.ContainsCreditCardNumber(r.Column)
	}),
}

// RuleTypes lists the registered rule types for help output.
func RuleTypes() []string {
	types := make([]string, 0, len(ruleRegistry))
	for name := range ruleRegistry {
		types = append(types, name)
	}

	return types
}

func (r Rule) groupColumns() []string {
	if len(r.Columns) > 0 {
		return r.Columns
	}

	if r.Column != "" {
		return []string{r.Column}
	}

	return nil
}

func columnRule(apply func(c *check.Check, r Rule)) ruleBuilder {
	return func(c *check.Check, r Rule) error {
		if r.Column == "" {
			return errMissingField("column")
		}

		apply(c, r)

		return nil
	}
}

func columnAssertionRule(apply func(c *check.Check, r Rule) error) ruleBuilder {
	return func(c *check.Check, r Rule) error {
		if r.Column == "" {
			return errMissingField("column")
		}

		return apply(c, r)
	}
}

func errMissingField(field string) error {
	return fmt.Errorf("%w: missing %s", ErrInvalidSuite, field)
}
