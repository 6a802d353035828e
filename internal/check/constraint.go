package check

import (
	"fmt"
	"sort"

	"github.com/veridata/veridata/internal/analyzer"
	"github.com/veridata/veridata/internal/metric"
	"github.com/veridata/veridata/pkg/predicate"
)

// ConstraintStatus is the outcome of one constraint evaluation. A failure
// means the data violated the assertion; an error means the assertion could
// not be evaluated at all.
type ConstraintStatus int

// Constraint outcomes.
const (
	ConstraintSuccess ConstraintStatus = iota
	ConstraintFailure
	ConstraintError
)

// String implements fmt.Stringer.
func (s ConstraintStatus) String() string {
	switch s {
	case ConstraintSuccess:
		return "success"
	case ConstraintFailure:
		return "failure"
	case ConstraintError:
		return "error"
	default:
		return fmt.Sprintf("ConstraintStatus(%d)", int(s))
	}
}

// ConstraintResult is one evaluated constraint. Metric is nil when no metric
// reached the constraint, e.g. when the run never computed it.
type ConstraintResult struct {
	Constraint string
	Status     ConstraintStatus
	Message    string
	Metric     *metric.Metric
}

// Constraint asserts a condition over computed metrics. Evaluation is pure:
// it reads the metric table and never touches the data.
type Constraint interface {
	// Description names the assertion for reports, e.g. "Age min > 0".
	Description() string

	// Analyzers lists the statistics this constraint needs.
	Analyzers() []analyzer.Analyzer

	// Evaluate resolves the constraint against computed metrics.
	Evaluate(table *metric.Table) ConstraintResult
}

// analysisConstraint asserts a predicate over one numeric analyzer metric.
// subject is the human name of the measured quantity ("Age min", "size").
type analysisConstraint struct {
	analyzer  analyzer.Analyzer
	predicate predicate.Predicate
	subject   string
	hint      string
}

func newAnalysisConstraint(a analyzer.Analyzer, p predicate.Predicate, subject, hint string) Constraint {
	return analysisConstraint{analyzer: a, predicate: p, subject: subject, hint: hint}
}

// Description implements Constraint.
func (c analysisConstraint) Description() string {
	return c.subject + " " + c.predicate.String()
}

// Analyzers implements Constraint.
func (c analysisConstraint) Analyzers() []analyzer.Analyzer {
	return []analyzer.Analyzer{c.analyzer}
}

// Evaluate implements Constraint. A panic inside a custom predicate is
// confined to this constraint's result.
func (c analysisConstraint) Evaluate(table *metric.Table) (result ConstraintResult) {
	result = ConstraintResult{Constraint: c.Description()}

	defer func() {
		if r := recover(); r != nil {
			result.Status = ConstraintError
			result.Message = fmt.Sprintf("evaluating %s panicked: %v", c.subject, r)
		}
	}()

	key := c.analyzer.MetricKey()

	m, ok := table.Lookup(key)
	if !ok {
		result.Status = ConstraintError
		result.Message = fmt.Sprintf("no metric computed for %s", key)

		return result
	}

	result.Metric = &m

	value, err := m.Value.Float64()
	if err != nil {
		result.Status = ConstraintError
		result.Message = fmt.Sprintf("cannot evaluate %s: %v", c.subject, err)

		return result
	}

	if c.predicate.Test(value) {
		result.Status = ConstraintSuccess

		return result
	}

	result.Status = ConstraintFailure
	result.Message = fmt.Sprintf("expected %s %s, got %g", c.subject, c.predicate.String(), value)

	if m.Detail != "" {
		result.Message += " (" + m.Detail + ")"
	}

	if c.hint != "" {
		result.Message += ". " + c.hint
	}

	return result
}

// schemaConstraint asserts the relation schema equals an expected
// column -> declared-type mapping.
type schemaConstraint struct {
	analyzer analyzer.SchemaAnalyzer
	expected map[string]string
}

func newSchemaConstraint(expected map[string]string) Constraint {
	return schemaConstraint{analyzer: analyzer.NewSchema(), expected: expected}
}

// Description implements Constraint.
func (c schemaConstraint) Description() string {
	return fmt.Sprintf("schema matches %d expected columns", len(c.expected))
}

// Analyzers implements Constraint.
func (c schemaConstraint) Analyzers() []analyzer.Analyzer {
	return []analyzer.Analyzer{c.analyzer}
}

// Evaluate implements Constraint.
func (c schemaConstraint) Evaluate(table *metric.Table) ConstraintResult {
	result := ConstraintResult{Constraint: c.Description()}

	key := c.analyzer.MetricKey()

	m, ok := table.Lookup(key)
	if !ok {
		result.Status = ConstraintError
		result.Message = fmt.Sprintf("no metric computed for %s", key)

		return result
	}

	result.Metric = &m

	actual, err := m.Value.Schema()
	if err != nil {
		result.Status = ConstraintError
		result.Message = fmt.Sprintf("cannot evaluate schema: %v", err)

		return result
	}

	if problems := diffSchema(c.expected, actual); len(problems) > 0 {
		result.Status = ConstraintFailure
		result.Message = "schema mismatch: " + joinProblems(problems)

		return result
	}

	result.Status = ConstraintSuccess

	return result
}

func diffSchema(expected, actual map[string]string) []string {
	var problems []string

	names := make([]string, 0, len(expected))
	for col := range expected {
		names = append(names, col)
	}

	sort.Strings(names)

	for _, col := range names {
		declared, present := actual[col]

		switch {
		case !present:
			problems = append(problems, fmt.Sprintf("missing column %s", col))
		case declared != expected[col]:
			problems = append(problems, fmt.Sprintf("column %s is %s, want %s", col, declared, expected[col]))
		}
	}

	extra := make([]string, 0)

	for col := range actual {
		if _, wanted := expected[col]; !wanted {
			extra = append(extra, col)
		}
	}

	sort.Strings(extra)

	for _, col := range extra {
		problems = append(problems, fmt.Sprintf("unexpected column %s", col))
	}

	return problems
}

func joinProblems(problems []string) string {
	out := problems[0]
	for _, p := range problems[1:] {
		out += "; " + p
	}

	return out
}
