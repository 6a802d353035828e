package analyzer

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize/english"

	"github.com/veridata/veridata/internal/metric"
	"github.com/veridata/veridata/internal/state"
)

// groupingBase carries the column set shared by frequency-based analyzers.
type groupingBase struct {
	base
	columns []string
}

func newGroupingBase(name string, columns []string, where string) groupingBase {
	entity := metric.EntityColumn
	if len(columns) != 1 {
		entity = metric.EntityMultiColumn
	}

	return groupingBase{
		base: base{
			name:     name,
			instance: multiColumnInstance(columns),
			entity:   entity,
			where:    where,
		},
		columns: columns,
	}
}

// GroupingColumns implements GroupingAnalyzer.
func (g groupingBase) GroupingColumns() []string {
	cols := make([]string, len(g.columns))
	copy(cols, g.columns)

	return cols
}

// Preconditions implements Analyzer.
func (g groupingBase) Preconditions() []Precondition {
	conds := []Precondition{AtLeastOne{Columns: g.columns}}

	return append(conds, hasColumns(g.columns...)...)
}

// Uniqueness measures the fraction of rows whose grouping value occurs
// exactly once.
type Uniqueness struct {
	groupingBase
}

// NewUniqueness creates a uniqueness analyzer over one or more columns.
// where may be empty.
func NewUniqueness(columns []string, where string) Uniqueness {
	return Uniqueness{groupingBase: newGroupingBase("Uniqueness", columns, where)}
}

// MetricFromState implements GroupingAnalyzer.
func (a Uniqueness) MetricFromState(st state.Frequencies) metric.Metric {
	if st.NumRows == 0 {
		return a.ErrorMetric(fmt.Errorf("%w: uniqueness over zero rows", metric.ErrValueUndefined))
	}

	var unique, duplicated int64

	for _, count := range st.Counts {
		if count == 1 {
			unique++
		} else {
			duplicated++
		}
	}

	m := a.successMetric(float64(unique) / float64(st.NumRows))
	if duplicated > 0 {
		m.Detail = english.Plural(int(duplicated), "duplicated value group", "")
	}

	return m
}

// Distinctness measures the fraction of distinct grouping values per row.
type Distinctness struct {
	groupingBase
}

// NewDistinctness creates a distinctness analyzer over one or more columns.
// where may be empty.
func NewDistinctness(columns []string, where string) Distinctness {
	return Distinctness{groupingBase: newGroupingBase("Distinctness", columns, where)}
}

// MetricFromState implements GroupingAnalyzer.
func (a Distinctness) MetricFromState(st state.Frequencies) metric.Metric {
	if st.NumRows == 0 {
		return a.ErrorMetric(fmt.Errorf("%w: distinctness over zero rows", metric.ErrValueUndefined))
	}

	return a.successMetric(float64(len(st.Counts)) / float64(st.NumRows))
}

// UniqueValueRatio measures unique values per distinct value.
type UniqueValueRatio struct {
	groupingBase
}

// NewUniqueValueRatio creates a unique-value-ratio analyzer over one or more
// columns. where may be empty.
func NewUniqueValueRatio(columns []string, where string) UniqueValueRatio {
	return UniqueValueRatio{groupingBase: newGroupingBase("UniqueValueRatio", columns, where)}
}

// MetricFromState implements GroupingAnalyzer.
func (a UniqueValueRatio) MetricFromState(st state.Frequencies) metric.Metric {
	distinct := int64(len(st.Counts))
	if distinct == 0 {
		return a.ErrorMetric(fmt.Errorf("%w: unique value ratio over zero distinct values", metric.ErrValueUndefined))
	}

	var unique int64

	for _, count := range st.Counts {
		if count == 1 {
			unique++
		}
	}

	return a.successMetric(float64(unique) / float64(distinct))
}

// Entropy measures the Shannon entropy (natural log) of the value
// distribution.
type Entropy struct {
	groupingBase
}

// NewEntropy creates an entropy analyzer over a column. where may be empty.
func NewEntropy(column, where string) Entropy {
	return Entropy{groupingBase: newGroupingBase("Entropy", []string{column}, where)}
}

// MetricFromState implements GroupingAnalyzer.
func (a Entropy) MetricFromState(st state.Frequencies) metric.Metric {
	if st.NumRows == 0 {
		return a.ErrorMetric(fmt.Errorf("%w: entropy over zero rows", metric.ErrValueUndefined))
	}

	total := float64(st.NumRows)

	var entropy float64

	for _, count := range st.Counts {
		if count == 0 {
			continue
		}

		p := float64(count) / total
		entropy -= p * math.Log(p)
	}

	return a.successMetric(entropy)
}
