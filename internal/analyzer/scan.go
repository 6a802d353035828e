package analyzer

import (
	"fmt"
	"strings"

	"github.com/veridata/veridata/internal/metric"
	"github.com/veridata/veridata/internal/state"
)

// Size counts rows, optionally restricted by a filter.
type Size struct {
	base
}

// NewSize creates a row-count analyzer. where may be empty.
func NewSize(where string) Size {
	return Size{base: base{
		name:     "Size",
		instance: "*",
		entity:   metric.EntityDataset,
		where:    where,
	}}
}

// Aggregations implements ScanAnalyzer.
func (a Size) Aggregations() []Aggregation {
	return []Aggregation{a.countAggregation()}
}

// StateFromRow implements ScanAnalyzer.
func (a Size) StateFromRow(row Row) (state.State, error) {
	count, err := row.Int64(a.countAggregation().Alias)
	if err != nil {
		return nil, err
	}

	return state.NumMatches{Matches: count}, nil
}

// MetricFromState implements ScanAnalyzer.
func (a Size) MetricFromState(st state.State) metric.Metric {
	s, ok := st.(state.NumMatches)
	if !ok {
		return a.ErrorMetric(fmt.Errorf("%w: want %s state", ErrResultShape, state.KindNumMatches))
	}

	return a.successMetric(float64(s.Matches))
}

// Completeness measures the fraction of non-NULL values in a column.
type Completeness struct {
	base
	column string
}

// NewCompleteness creates a completeness analyzer. where may be empty.
func NewCompleteness(column, where string) Completeness {
	return Completeness{
		base: base{
			name:     "Completeness",
			instance: column,
			entity:   metric.EntityColumn,
			where:    where,
		},
		column: column,
	}
}

// Preconditions implements Analyzer.
func (a Completeness) Preconditions() []Precondition {
	return hasColumns(a.column)
}

func (a Completeness) nullsAlias() string {
	return "vd_nulls_" + a.identifier()
}

// Aggregations implements ScanAnalyzer.
func (a Completeness) Aggregations() []Aggregation {
	nullCase := fmt.Sprintf("CASE WHEN %s IS NULL THEN 1 ELSE 0 END", a.column)
	if a.where != "" {
		nullCase = fmt.Sprintf("CASE WHEN (%s) AND %s IS NULL THEN 1 ELSE 0 END", a.where, a.column)
	}

	return []Aggregation{
		a.countAggregation(),
		{Alias: a.nullsAlias(), Expr: fmt.Sprintf("SUM(%s)", nullCase)},
	}
}

// StateFromRow implements ScanAnalyzer.
func (a Completeness) StateFromRow(row Row) (state.State, error) {
	count, err := row.Int64(a.countAggregation().Alias)
	if err != nil {
		return nil, err
	}

	nulls, err := row.Int64(a.nullsAlias())
	if err != nil {
		return nil, err
	}

	return state.NumMatchesAndCount{Matches: count - nulls, Count: count}, nil
}

// MetricFromState implements ScanAnalyzer.
func (a Completeness) MetricFromState(st state.State) metric.Metric {
	return ratioMetric(a.base, st)
}

// Compliance measures the fraction of rows satisfying an arbitrary SQL
// predicate. The instance names the rule, not a column.
type Compliance struct {
	base
	expression string
}

// NewCompliance creates a compliance analyzer for the given predicate
// expression. where may be empty.
func NewCompliance(name, expression, where string) Compliance {
	return Compliance{
		base: base{
			name:     "Compliance",
			instance: name,
			entity:   metric.EntityDataset,
			where:    where,
		},
		expression: expression,
	}
}

// ID implements Analyzer. The expression participates in identity: two
// compliance analyzers under one name but different predicates must not
// share a computation.
func (a Compliance) ID() string {
	return a.base.ID() + "|" + a.expression
}

// qualifier carries the expression alongside the filter, mirroring ID, so
// same-named rules with different predicates publish distinct metrics.
func (a Compliance) qualifier() string {
	return a.where + "|" + a.expression
}

// MetricKey implements Analyzer.
func (a Compliance) MetricKey() metric.Key {
	key := a.base.MetricKey()
	key.Qualifier = a.qualifier()

	return key
}

// ErrorMetric implements Analyzer.
func (a Compliance) ErrorMetric(err error) metric.Metric {
	m := a.base.ErrorMetric(err)
	m.Qualifier = a.qualifier()

	return m
}

func (a Compliance) matchesAlias() string {
	return "vd_matches_" + shortHash(a.ID())
}

// Aggregations implements ScanAnalyzer.
func (a Compliance) Aggregations() []Aggregation {
	matchCase := fmt.Sprintf("CASE WHEN (%s) THEN 1 ELSE 0 END", a.expression)
	if a.where != "" {
		matchCase = fmt.Sprintf("CASE WHEN (%s) AND (%s) THEN 1 ELSE 0 END", a.where, a.expression)
	}

	return []Aggregation{
		a.countAggregation(),
		{Alias: a.matchesAlias(), Expr: fmt.Sprintf("SUM(%s)", matchCase)},
	}
}

// StateFromRow implements ScanAnalyzer.
func (a Compliance) StateFromRow(row Row) (state.State, error) {
	count, err := row.Int64(a.countAggregation().Alias)
	if err != nil {
		return nil, err
	}

	matches, err := row.Int64(a.matchesAlias())
	if err != nil {
		return nil, err
	}

	return state.NumMatchesAndCount{Matches: matches, Count: count}, nil
}

// MetricFromState implements ScanAnalyzer.
func (a Compliance) MetricFromState(st state.State) metric.Metric {
	m := ratioMetric(a.base, st)
	m.Qualifier = a.qualifier()

	return m
}

// PatternMatch measures the fraction of values matching a regular
// expression, evaluated in-database via the regexp_matches SQL function the
// backend registers.
type PatternMatch struct {
	base
	column  string
	pattern string
}

// NewPatternMatch creates a pattern-compliance analyzer. where may be empty.
func NewPatternMatch(column, pattern, where string) PatternMatch {
	return PatternMatch{
		base: base{
			name:     "PatternMatch",
			instance: column + "," + pattern,
			entity:   metric.EntityColumn,
			where:    where,
		},
		column:  column,
		pattern: pattern,
	}
}

// Preconditions implements Analyzer.
func (a PatternMatch) Preconditions() []Precondition {
	return hasColumns(a.column)
}

func (a PatternMatch) matchesAlias() string {
	return "vd_matches_" + a.identifier()
}

// Aggregations implements ScanAnalyzer.
func (a PatternMatch) Aggregations() []Aggregation {
	quoted := strings.ReplaceAll(a.pattern, "'", "''")
	matchExpr := fmt.Sprintf("regexp_matches(%s, '%s')", a.column, quoted)

	matchCase := fmt.Sprintf("CASE WHEN %s THEN 1 ELSE 0 END", matchExpr)
	if a.where != "" {
		matchCase = fmt.Sprintf("CASE WHEN (%s) AND %s THEN 1 ELSE 0 END", a.where, matchExpr)
	}

	return []Aggregation{
		a.countAggregation(),
		{Alias: a.matchesAlias(), Expr: fmt.Sprintf("SUM(%s)", matchCase)},
	}
}

// StateFromRow implements ScanAnalyzer.
func (a PatternMatch) StateFromRow(row Row) (state.State, error) {
	count, err := row.Int64(a.countAggregation().Alias)
	if err != nil {
		return nil, err
	}

	matches, err := row.Int64(a.matchesAlias())
	if err != nil {
		return nil, err
	}

	return state.NumMatchesAndCount{Matches: matches, Count: count}, nil
}

// MetricFromState implements ScanAnalyzer.
func (a PatternMatch) MetricFromState(st state.State) metric.Metric {
	return ratioMetric(a.base, st)
}

// Minimum computes the minimum value of a numeric column.
type Minimum struct {
	base
	column string
}

// NewMinimum creates a minimum analyzer. where may be empty.
func NewMinimum(column, where string) Minimum {
	return Minimum{
		base: base{
			name:     "Minimum",
			instance: column,
			entity:   metric.EntityColumn,
			where:    where,
		},
		column: column,
	}
}

// Preconditions implements Analyzer.
func (a Minimum) Preconditions() []Precondition {
	return []Precondition{HasColumn{Column: a.column}, IsNumeric{Column: a.column}}
}

func (a Minimum) alias() string { return "vd_min_" + a.identifier() }

// Aggregations implements ScanAnalyzer.
func (a Minimum) Aggregations() []Aggregation {
	return []Aggregation{{
		Alias: a.alias(),
		Expr:  fmt.Sprintf("MIN(%s)", a.filteredExpr(a.column)),
	}}
}

// StateFromRow implements ScanAnalyzer.
func (a Minimum) StateFromRow(row Row) (state.State, error) {
	value, defined, err := row.Float64(a.alias())
	if err != nil {
		return nil, err
	}

	return state.Min{Value: value, Defined: defined}, nil
}

// MetricFromState implements ScanAnalyzer.
func (a Minimum) MetricFromState(st state.State) metric.Metric {
	s, ok := st.(state.Min)
	if !ok {
		return a.ErrorMetric(fmt.Errorf("%w: want %s state", ErrResultShape, state.KindMin))
	}

	if !s.Defined {
		return a.ErrorMetric(fmt.Errorf("%w: minimum of zero rows", metric.ErrValueUndefined))
	}

	return a.successMetric(s.Value)
}

// Maximum computes the maximum value of a numeric column.
type Maximum struct {
	base
	column string
}

// NewMaximum creates a maximum analyzer. where may be empty.
func NewMaximum(column, where string) Maximum {
	return Maximum{
		base: base{
			name:     "Maximum",
			instance: column,
			entity:   metric.EntityColumn,
			where:    where,
		},
		column: column,
	}
}

// Preconditions implements Analyzer.
func (a Maximum) Preconditions() []Precondition {
	return []Precondition{HasColumn{Column: a.column}, IsNumeric{Column: a.column}}
}

func (a Maximum) alias() string { return "vd_max_" + a.identifier() }

// Aggregations implements ScanAnalyzer.
func (a Maximum) Aggregations() []Aggregation {
	return []Aggregation{{
		Alias: a.alias(),
		Expr:  fmt.Sprintf("MAX(%s)", a.filteredExpr(a.column)),
	}}
}

// StateFromRow implements ScanAnalyzer.
func (a Maximum) StateFromRow(row Row) (state.State, error) {
	value, defined, err := row.Float64(a.alias())
	if err != nil {
		return nil, err
	}

	return state.Max{Value: value, Defined: defined}, nil
}

// MetricFromState implements ScanAnalyzer.
func (a Maximum) MetricFromState(st state.State) metric.Metric {
	s, ok := st.(state.Max)
	if !ok {
		return a.ErrorMetric(fmt.Errorf("%w: want %s state", ErrResultShape, state.KindMax))
	}

	if !s.Defined {
		return a.ErrorMetric(fmt.Errorf("%w: maximum of zero rows", metric.ErrValueUndefined))
	}

	return a.successMetric(s.Value)
}

// Mean computes the average of the non-NULL values of a numeric column.
type Mean struct {
	base
	column string
}

// NewMean creates a mean analyzer. where may be empty.
func NewMean(column, where string) Mean {
	return Mean{
		base: base{
			name:     "Mean",
			instance: column,
			entity:   metric.EntityColumn,
			where:    where,
		},
		column: column,
	}
}

// Preconditions implements Analyzer.
func (a Mean) Preconditions() []Precondition {
	return []Precondition{HasColumn{Column: a.column}, IsNumeric{Column: a.column}}
}

func (a Mean) totalAlias() string { return "vd_total_" + a.identifier() }

func (a Mean) valuesAlias() string { return "vd_values_" + a.identifier() }

// Aggregations implements ScanAnalyzer.
func (a Mean) Aggregations() []Aggregation {
	filtered := a.filteredExpr(a.column)

	return []Aggregation{
		{Alias: a.valuesAlias(), Expr: fmt.Sprintf("COUNT(%s)", filtered)},
		{Alias: a.totalAlias(), Expr: fmt.Sprintf("SUM(%s)", filtered)},
	}
}

// StateFromRow implements ScanAnalyzer.
func (a Mean) StateFromRow(row Row) (state.State, error) {
	count, err := row.Int64(a.valuesAlias())
	if err != nil {
		return nil, err
	}

	total, _, err := row.Float64(a.totalAlias())
	if err != nil {
		return nil, err
	}

	return state.Mean{Total: total, Count: count}, nil
}

// MetricFromState implements ScanAnalyzer.
func (a Mean) MetricFromState(st state.State) metric.Metric {
	s, ok := st.(state.Mean)
	if !ok {
		return a.ErrorMetric(fmt.Errorf("%w: want %s state", ErrResultShape, state.KindMean))
	}

	value, defined := s.Value()
	if !defined {
		return a.ErrorMetric(fmt.Errorf("%w: mean of zero rows", metric.ErrValueUndefined))
	}

	return a.successMetric(value)
}

// Sum computes the sum of a numeric column.
type Sum struct {
	base
	column string
}

// NewSum creates a sum analyzer. where may be empty.
func NewSum(column, where string) Sum {
	return Sum{
		base: base{
			name:     "Sum",
			instance: column,
			entity:   metric.EntityColumn,
			where:    where,
		},
		column: column,
	}
}

// Preconditions implements Analyzer.
func (a Sum) Preconditions() []Precondition {
	return []Precondition{HasColumn{Column: a.column}, IsNumeric{Column: a.column}}
}

func (a Sum) alias() string { return "vd_sum_" + a.identifier() }

// Aggregations implements ScanAnalyzer.
func (a Sum) Aggregations() []Aggregation {
	return []Aggregation{{
		Alias: a.alias(),
		Expr:  fmt.Sprintf("SUM(%s)", a.filteredExpr(a.column)),
	}}
}

// StateFromRow implements ScanAnalyzer.
func (a Sum) StateFromRow(row Row) (state.State, error) {
	value, defined, err := row.Float64(a.alias())
	if err != nil {
		return nil, err
	}

	return state.Sum{Value: value, Defined: defined}, nil
}

// MetricFromState implements ScanAnalyzer.
func (a Sum) MetricFromState(st state.State) metric.Metric {
	s, ok := st.(state.Sum)
	if !ok {
		return a.ErrorMetric(fmt.Errorf("%w: want %s state", ErrResultShape, state.KindSum))
	}

	if !s.Defined {
		return a.ErrorMetric(fmt.Errorf("%w: sum of zero rows", metric.ErrValueUndefined))
	}

	return a.successMetric(s.Value)
}

// StandardDeviation computes the population standard deviation of a numeric
// column from count, sum and sum of squares, which keeps the state mergeable.
type StandardDeviation struct {
	base
	column string
}

// NewStandardDeviation creates a standard-deviation analyzer. where may be
// empty.
func NewStandardDeviation(column, where string) StandardDeviation {
	return StandardDeviation{
		base: base{
			name:     "StandardDeviation",
			instance: column,
			entity:   metric.EntityColumn,
			where:    where,
		},
		column: column,
	}
}

// Preconditions implements Analyzer.
func (a StandardDeviation) Preconditions() []Precondition {
	return []Precondition{HasColumn{Column: a.column}, IsNumeric{Column: a.column}}
}

func (a StandardDeviation) nAlias() string { return "vd_n_" + a.identifier() }

func (a StandardDeviation) sumAlias() string { return "vd_sum_" + a.identifier() }

func (a StandardDeviation) sumSqAlias() string { return "vd_sumsq_" + a.identifier() }

// Aggregations implements ScanAnalyzer.
func (a StandardDeviation) Aggregations() []Aggregation {
	filtered := a.filteredExpr(a.column)
	squared := a.filteredExpr(fmt.Sprintf("%s * %s", a.column, a.column))

	return []Aggregation{
		{Alias: a.nAlias(), Expr: fmt.Sprintf("COUNT(%s)", filtered)},
		{Alias: a.sumAlias(), Expr: fmt.Sprintf("SUM(%s)", filtered)},
		{Alias: a.sumSqAlias(), Expr: fmt.Sprintf("SUM(%s)", squared)},
	}
}

// StateFromRow implements ScanAnalyzer.
func (a StandardDeviation) StateFromRow(row Row) (state.State, error) {
	n, err := row.Int64(a.nAlias())
	if err != nil {
		return nil, err
	}

	sum, _, err := row.Float64(a.sumAlias())
	if err != nil {
		return nil, err
	}

	sumSq, _, err := row.Float64(a.sumSqAlias())
	if err != nil {
		return nil, err
	}

	return state.StandardDeviation{N: n, Sum: sum, SumSq: sumSq}, nil
}

// MetricFromState implements ScanAnalyzer.
func (a StandardDeviation) MetricFromState(st state.State) metric.Metric {
	s, ok := st.(state.StandardDeviation)
	if !ok {
		return a.ErrorMetric(fmt.Errorf("%w: want %s state", ErrResultShape, state.KindStandardDeviation))
	}

	value, defined := s.Value()
	if !defined {
		return a.ErrorMetric(fmt.Errorf("%w: standard deviation of zero rows", metric.ErrValueUndefined))
	}

	return a.successMetric(value)
}

// MinLength computes the minimum string length of a column.
type MinLength struct {
	base
	column string
}

// NewMinLength creates a minimum-length analyzer. where may be empty.
func NewMinLength(column, where string) MinLength {
	return MinLength{
		base: base{
			name:     "MinLength",
			instance: column,
			entity:   metric.EntityColumn,
			where:    where,
		},
		column: column,
	}
}

// Preconditions implements Analyzer.
func (a MinLength) Preconditions() []Precondition {
	return []Precondition{HasColumn{Column: a.column}, IsString{Column: a.column}}
}

func (a MinLength) alias() string { return "vd_minlen_" + a.identifier() }

// Aggregations implements ScanAnalyzer.
func (a MinLength) Aggregations() []Aggregation {
	return []Aggregation{{
		Alias: a.alias(),
		Expr:  fmt.Sprintf("MIN(%s)", a.filteredExpr(fmt.Sprintf("LENGTH(%s)", a.column))),
	}}
}

// StateFromRow implements ScanAnalyzer.
func (a MinLength) StateFromRow(row Row) (state.State, error) {
	value, defined, err := row.Float64(a.alias())
	if err != nil {
		return nil, err
	}

	return state.Min{Value: value, Defined: defined}, nil
}

// MetricFromState implements ScanAnalyzer.
func (a MinLength) MetricFromState(st state.State) metric.Metric {
	s, ok := st.(state.Min)
	if !ok {
		return a.ErrorMetric(fmt.Errorf("%w: want %s state", ErrResultShape, state.KindMin))
	}

	if !s.Defined {
		return a.ErrorMetric(fmt.Errorf("%w: minimum length of zero rows", metric.ErrValueUndefined))
	}

	return a.successMetric(s.Value)
}

// MaxLength computes the maximum string length of a column.
type MaxLength struct {
	base
	column string
}

// NewMaxLength creates a maximum-length analyzer. where may be empty.
func NewMaxLength(column, where string) MaxLength {
	return MaxLength{
		base: base{
			name:     "MaxLength",
			instance: column,
			entity:   metric.EntityColumn,
			where:    where,
		},
		column: column,
	}
}

// Preconditions implements Analyzer.
func (a MaxLength) Preconditions() []Precondition {
	return []Precondition{HasColumn{Column: a.column}, IsString{Column: a.column}}
}

func (a MaxLength) alias() string { return "vd_maxlen_" + a.identifier() }

// Aggregations implements ScanAnalyzer.
func (a MaxLength) Aggregations() []Aggregation {
	return []Aggregation{{
		Alias: a.alias(),
		Expr:  fmt.Sprintf("MAX(%s)", a.filteredExpr(fmt.Sprintf("LENGTH(%s)", a.column))),
	}}
}

// StateFromRow implements ScanAnalyzer.
func (a MaxLength) StateFromRow(row Row) (state.State, error) {
	value, defined, err := row.Float64(a.alias())
	if err != nil {
		return nil, err
	}

	return state.Max{Value: value, Defined: defined}, nil
}

// MetricFromState implements ScanAnalyzer.
func (a MaxLength) MetricFromState(st state.State) metric.Metric {
	s, ok := st.(state.Max)
	if !ok {
		return a.ErrorMetric(fmt.Errorf("%w: want %s state", ErrResultShape, state.KindMax))
	}

	if !s.Defined {
		return a.ErrorMetric(fmt.Errorf("%w: maximum length of zero rows", metric.ErrValueUndefined))
	}

	return a.successMetric(s.Value)
}

// ApproxDistinctness estimates the fraction of distinct values in a column.
// On backends without sketch support the count is exact; the metric is
// flagged approximate either way because the analyzer contract permits
// sketch-backed implementations.
type ApproxDistinctness struct {
	base
	column string
}

// NewApproxDistinctness creates an approximate-distinctness analyzer. where
// may be empty.
func NewApproxDistinctness(column, where string) ApproxDistinctness {
	return ApproxDistinctness{
		base: base{
			name:     "ApproxDistinctness",
			instance: column,
			entity:   metric.EntityColumn,
			where:    where,
		},
		column: column,
	}
}

// Preconditions implements Analyzer.
func (a ApproxDistinctness) Preconditions() []Precondition {
	return hasColumns(a.column)
}

func (a ApproxDistinctness) distinctAlias() string { return "vd_distinct_" + a.identifier() }

func (a ApproxDistinctness) rowsAlias() string { return "vd_rows_" + a.identifier() }

// Aggregations implements ScanAnalyzer.
func (a ApproxDistinctness) Aggregations() []Aggregation {
	filtered := a.filteredExpr(a.column)

	return []Aggregation{
		{Alias: a.distinctAlias(), Expr: fmt.Sprintf("COUNT(DISTINCT %s)", filtered)},
		{Alias: a.rowsAlias(), Expr: fmt.Sprintf("COUNT(%s)", filtered)},
	}
}

// StateFromRow implements ScanAnalyzer.
func (a ApproxDistinctness) StateFromRow(row Row) (state.State, error) {
	distinct, err := row.Int64(a.distinctAlias())
	if err != nil {
		return nil, err
	}

	rows, err := row.Int64(a.rowsAlias())
	if err != nil {
		return nil, err
	}

	return state.Distinct{Distinct: distinct, NumRows: rows}, nil
}

// MetricFromState implements ScanAnalyzer.
func (a ApproxDistinctness) MetricFromState(st state.State) metric.Metric {
	s, ok := st.(state.Distinct)
	if !ok {
		return a.ErrorMetric(fmt.Errorf("%w: want %s state", ErrResultShape, state.KindDistinct))
	}

	if s.NumRows == 0 {
		return a.ErrorMetric(fmt.Errorf("%w: distinctness of zero rows", metric.ErrValueUndefined))
	}

	m := a.successMetric(float64(s.Distinct) / float64(s.NumRows))
	m.Approx = true

	return m
}

// ratioMetric derives a matches/count ratio metric shared by completeness,
// compliance and pattern-match analyzers.
func ratioMetric(b base, st state.State) metric.Metric {
	s, ok := st.(state.NumMatchesAndCount)
	if !ok {
		return b.ErrorMetric(fmt.Errorf("%w: want %s state", ErrResultShape, state.KindNumMatchesAndCount))
	}

	ratio, defined := s.Ratio()
	if !defined {
		return b.ErrorMetric(fmt.Errorf("%w: ratio over zero rows", metric.ErrValueUndefined))
	}

	return b.successMetric(ratio)
}
