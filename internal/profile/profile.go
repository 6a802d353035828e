// Package profile computes one-pass descriptive statistics for every column
// of a relation.
//
// Profiling reuses the analysis runner: it registers the standard analyzers
// for each column and lets the planner collapse them into a single scan.
// Numeric statistics are requested for every column; on non-numeric columns
// their preconditions fail and the profile simply leaves those fields unset.
package profile

import (
	"context"
	"fmt"

	"github.com/veridata/veridata/internal/analyzer"
	"github.com/veridata/veridata/internal/backend"
	"github.com/veridata/veridata/internal/metric"
	"github.com/veridata/veridata/internal/runner"
)

// Column is the profile of one column.
type Column struct {
	Name string
	Type string

	Completeness       *float64
	ApproxDistinctness *float64
	Minimum            *float64
	Maximum            *float64
	Mean               *float64
	StandardDeviation  *float64
	MinLength          *float64
	MaxLength          *float64
}

// Profile is the result of profiling one relation.
type Profile struct {
	Table   string
	Rows    int64
	Columns []Column
}

// Dataset profiles the relation in one scan.
func Dataset(ctx context.Context, be backend.Backend, table string) (*Profile, error) {
	schema, err := be.Schema(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", table, err)
	}

	analyzers := []analyzer.Analyzer{analyzer.NewSize("")}

	for _, column := range schema.Columns {
		analyzers = append(analyzers,
			analyzer.NewCompleteness(column, ""),
			analyzer.NewApproxDistinctness(column, ""),
			analyzer.NewMinimum(column, ""),
			analyzer.NewMaximum(column, ""),
			analyzer.NewMean(column, ""),
			analyzer.NewStandardDeviation(column, ""),
			analyzer.NewMinLength(column, ""),
			analyzer.NewMaxLength(column, ""),
		)
	}

	analysis, err := runner.Run(ctx, be, table, analyzers)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", table, err)
	}

	metrics := analysis.MetricTable()
	result := &Profile{Table: table}

	if size, ok := lookup(metrics, metric.EntityDataset, "Size", "*"); ok {
		result.Rows = int64(size)
	}

	for _, column := range schema.Columns {
		profiled := Column{Name: column, Type: schema.Types[column]}

		profiled.Completeness = lookupPtr(metrics, "Completeness", column)
		profiled.ApproxDistinctness = lookupPtr(metrics, "ApproxDistinctness", column)
		profiled.Minimum = lookupPtr(metrics, "Minimum", column)
		profiled.Maximum = lookupPtr(metrics, "Maximum", column)
		profiled.Mean = lookupPtr(metrics, "Mean", column)
		profiled.StandardDeviation = lookupPtr(metrics, "StandardDeviation", column)
		profiled.MinLength = lookupPtr(metrics, "MinLength", column)
		profiled.MaxLength = lookupPtr(metrics, "MaxLength", column)

		result.Columns = append(result.Columns, profiled)
	}

	return result, nil
}

func lookup(metrics *metric.Table, entity metric.Entity, name, instance string) (float64, bool) {
	m, ok := metrics.Lookup(metric.Key{Entity: entity, Name: name, Instance: instance})
	if !ok {
		return 0, false
	}

	value, err := m.Value.Float64()
	if err != nil {
		return 0, false
	}

	return value, true
}

func lookupPtr(metrics *metric.Table, name, instance string) *float64 {
	value, ok := lookup(metrics, metric.EntityColumn, name, instance)
	if !ok {
		return nil
	}

	return &value
}
