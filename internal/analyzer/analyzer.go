// Package analyzer maps required statistics onto SQL aggregation fragments,
// state constructors and metric derivers.
//
// Every analyzer carries a stable identity key (name, instance, row filter).
// Two analyzers with the same identity resolve to the same computation, which
// is what lets the analysis runner collapse overlapping requirements from
// many checks into a single scan of the relation.
//
// Scan analyzers contribute aggregation fragments to one combined
// group-by-nothing query. Grouping analyzers share a per-(columns, filter)
// frequency query whose result is a mergeable frequency state.
package analyzer

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/spf13/cast"

	"github.com/veridata/veridata/internal/metric"
	"github.com/veridata/veridata/internal/state"
)

// Aggregation is one output column of the combined scan query.
type Aggregation struct {
	// Alias is the output column name. Aliases embed the analyzer identity
	// hash, so identical analyzers collide on purpose and the runner emits
	// the expression once.
	Alias string

	// Expr is the SQL aggregate expression, without the AS clause.
	Expr string
}

// Fragment renders the SELECT list entry.
func (a Aggregation) Fragment() string {
	return fmt.Sprintf("%s AS %s", a.Expr, a.Alias)
}

// Analyzer declares a required statistic over a relation.
type Analyzer interface {
	// Name is the statistic family, e.g. "Completeness".
	Name() string

	// Instance ties the statistic to its target, usually a column name.
	Instance() string

	// Entity reports what the resulting metric is measured over.
	Entity() metric.Entity

	// Where is an optional SQL row-filter predicate, empty for none.
	Where() string

	// ID is the deduplication key: analyzers with equal IDs must describe
	// the identical computation.
	ID() string

	// MetricKey is the identity under which this analyzer's metric lands in
	// the metric table. Analyzers with distinct IDs publish distinct keys, so
	// filtered and unfiltered variants of one statistic never collide.
	MetricKey() metric.Key

	// Preconditions are checked against the relation schema before any
	// query is built; a failing precondition poisons only this analyzer.
	Preconditions() []Precondition

	// ErrorMetric wraps a computation or configuration failure into this
	// analyzer's metric slot.
	ErrorMetric(err error) metric.Metric
}

// ScanAnalyzer is reducible through the single combined aggregation query.
type ScanAnalyzer interface {
	Analyzer

	// Aggregations lists the output columns this analyzer needs.
	Aggregations() []Aggregation

	// StateFromRow reconstructs the analyzer state from the combined
	// query's single result row.
	StateFromRow(row Row) (state.State, error)

	// MetricFromState derives the metric. Pure; never touches the relation.
	MetricFromState(st state.State) metric.Metric
}

// GroupingAnalyzer needs a value -> occurrence-count frequency table.
type GroupingAnalyzer interface {
	Analyzer

	// GroupingColumns lists the columns the frequency query groups by.
	GroupingColumns() []string

	// MetricFromState derives the metric from the shared frequency state.
	MetricFromState(st state.Frequencies) metric.Metric
}

// Row is one raw result row of an aggregation query, keyed by output alias.
type Row map[string]any

// Int64 returns an integral cell. A missing alias is a shape error; a NULL
// cell coerces to zero, which matches SQL COUNT/SUM-of-cases semantics.
func (r Row) Int64(alias string) (int64, error) {
	raw, ok := r[alias]
	if !ok {
		return 0, fmt.Errorf("%w: no column %q in aggregation result", ErrResultShape, alias)
	}

	if raw == nil {
		return 0, nil
	}

	v, err := cast.ToInt64E(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: column %q: %v", ErrResultShape, alias, err)
	}

	return v, nil
}

// Float64 returns a numeric cell. The second result is false when the cell is
// NULL, which SQL aggregates produce over empty inputs.
func (r Row) Float64(alias string) (float64, bool, error) {
	raw, ok := r[alias]
	if !ok {
		return 0, false, fmt.Errorf("%w: no column %q in aggregation result", ErrResultShape, alias)
	}

	if raw == nil {
		return 0, false, nil
	}

	v, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%w: column %q: %v", ErrResultShape, alias, err)
	}

	return v, true, nil
}

// base carries the identity shared by all analyzers.
type base struct {
	name     string
	instance string
	entity   metric.Entity
	where    string
}

// Name implements Analyzer.
func (b base) Name() string { return b.name }

// Instance implements Analyzer.
func (b base) Instance() string { return b.instance }

// Entity implements Analyzer.
func (b base) Entity() metric.Entity { return b.entity }

// Where implements Analyzer.
func (b base) Where() string { return b.where }

// ID implements Analyzer.
func (b base) ID() string {
	return b.name + "|" + b.instance + "|" + b.where
}

// MetricKey implements Analyzer.
func (b base) MetricKey() metric.Key {
	return metric.Key{
		Entity:    b.entity,
		Name:      b.name,
		Instance:  b.instance,
		Qualifier: b.where,
	}
}

// Preconditions implements Analyzer. Analyzers with column requirements
// override this.
func (b base) Preconditions() []Precondition { return nil }

// ErrorMetric implements Analyzer.
func (b base) ErrorMetric(err error) metric.Metric {
	return metric.Metric{
		Entity:    b.entity,
		Name:      b.name,
		Instance:  b.instance,
		Qualifier: b.where,
		Value:     metric.FromError(err),
	}
}

func (b base) successMetric(value float64) metric.Metric {
	return metric.Metric{
		Entity:    b.entity,
		Name:      b.name,
		Instance:  b.instance,
		Qualifier: b.where,
		Value:     metric.FromFloat(value),
	}
}

// identifier is a short stable hash of the analyzer identity, embedded in
// aggregation aliases so equal analyzers share output columns.
func (b base) identifier() string {
	return shortHash(b.ID())
}

// filterIdentifier hashes only the row filter; aggregations that depend on
// the filter alone (plain row counts) are shared across analyzer families.
func (b base) filterIdentifier() string {
	if b.where == "" {
		return "all"
	}

	return shortHash(b.where)
}

// countAggregation is the shared row-count output for a given filter.
func (b base) countAggregation() Aggregation {
	alias := "vd_count_" + b.filterIdentifier()
	if b.where == "" {
		return Aggregation{Alias: alias, Expr: "COUNT(*)"}
	}

	return Aggregation{
		Alias: alias,
		Expr:  fmt.Sprintf("SUM(CASE WHEN (%s) THEN 1 ELSE 0 END)", b.where),
	}
}

// filteredExpr wraps a column (or expression) in the analyzer's row filter.
func (b base) filteredExpr(expr string) string {
	if b.where == "" {
		return expr
	}

	return fmt.Sprintf("CASE WHEN (%s) THEN %s ELSE NULL END", b.where, expr)
}

func shortHash(s string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))

	return fmt.Sprintf("%08x", h.Sum32())
}

func multiColumnInstance(columns []string) string {
	return strings.Join(columns, ",")
}
