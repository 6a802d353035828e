// Package runner plans and executes the minimal set of aggregation queries
// needed to satisfy a set of analyzers.
//
// All scan analyzers collapse into exactly one group-by-nothing aggregation
// query; every distinct (grouping columns, filter) pair costs one additional
// grouped frequency query. Each query runs exactly once, and a query failure
// poisons only the analyzers it feeds.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cast"

	"github.com/veridata/veridata/internal/analyzer"
	"github.com/veridata/veridata/internal/backend"
	"github.com/veridata/veridata/internal/metric"
	"github.com/veridata/veridata/internal/state"
)

// ErrAliasConflict indicates two analyzers with different identities mapped
// onto the same output alias with different expressions. This is a
// configuration error in analyzer construction, not a data problem.
var ErrAliasConflict = errors.New("conflicting aggregation alias")

// ErrEmptyResult indicates the combined scan query returned no row, which a
// group-by-nothing aggregation never legitimately does.
var ErrEmptyResult = errors.New("aggregation query returned no rows")

// freqAlias is the occurrence-count column of frequency queries.
const freqAlias = "vd_freq"

// nullKey encodes SQL NULL grouping values in frequency maps; the NUL prefix
// cannot collide with real column text.
const nullKey = "\x00null"

// groupSeparator joins multi-column grouping values into one frequency key.
const groupSeparator = "\x1f"

// Context carries the outcome of one analysis run: per-analyzer states and
// metrics, plus the combined metric table consumed by constraints.
type Context struct {
	metrics map[string]metric.Metric
	states  map[string]state.State
	table   *metric.Table
}

// MetricFor returns the metric computed for the given analyzer identity.
func (c *Context) MetricFor(id string) (metric.Metric, bool) {
	m, ok := c.metrics[id]

	return m, ok
}

// StateFor returns the state computed for the given analyzer identity.
// Analyzers that failed preconditions or whose query failed have no state.
func (c *Context) StateFor(id string) (state.State, bool) {
	st, ok := c.states[id]

	return st, ok
}

// States returns a copy of the state map, keyed by analyzer identity.
func (c *Context) States() map[string]state.State {
	states := make(map[string]state.State, len(c.states))
	for id, st := range c.states {
		states[id] = st
	}

	return states
}

// MetricTable returns the metrics keyed by their full identity.
func (c *Context) MetricTable() *metric.Table {
	return c.table
}

// Run executes the analysis for all given analyzers against one relation.
// Analyzer-level failures (missing columns, failed queries) surface as error
// metrics inside the returned context; only an unusable relation (schema
// introspection failure) fails the run itself.
func Run(ctx context.Context, be backend.Backend, table string, analyzers []analyzer.Analyzer) (*Context, error) {
	schema, err := be.Schema(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("resolve schema of %s: %w", table, err)
	}

	run := &Context{
		metrics: make(map[string]metric.Metric),
		states:  make(map[string]state.State),
	}

	scan, grouped := run.plan(schema, analyzers)

	run.executeScan(ctx, be, table, scan)

	keys := make([]groupKey, 0, len(grouped))
	for key := range grouped {
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].columns != keys[j].columns {
			return keys[i].columns < keys[j].columns
		}

		return keys[i].where < keys[j].where
	})

	for _, key := range keys {
		run.executeGrouping(ctx, be, table, key, grouped[key])
	}

	all := make([]metric.Metric, 0, len(run.metrics))
	for _, m := range run.metrics {
		all = append(all, m)
	}

	run.table = metric.NewTable(all)

	return run, nil
}

type groupKey struct {
	columns string
	where   string
}

// plan deduplicates analyzers, checks preconditions and partitions the
// survivors into the scan set and per-grouping sets. Schema snapshots are
// answered immediately from the introspected schema.
func (c *Context) plan(
	schema state.Schema,
	analyzers []analyzer.Analyzer,
) ([]analyzer.ScanAnalyzer, map[groupKey][]analyzer.GroupingAnalyzer) {
	seen := make(map[string]struct{}, len(analyzers))
	scan := make([]analyzer.ScanAnalyzer, 0, len(analyzers))
	grouped := make(map[groupKey][]analyzer.GroupingAnalyzer)

	for _, a := range analyzers {
		if _, dup := seen[a.ID()]; dup {
			continue
		}

		seen[a.ID()] = struct{}{}

		if failed := checkPreconditions(a, schema); failed != nil {
			c.metrics[a.ID()] = a.ErrorMetric(failed)

			continue
		}

		switch concrete := a.(type) {
		case analyzer.SchemaAnalyzer:
			c.states[a.ID()] = schema
			c.metrics[a.ID()] = concrete.MetricFromSchema(schema)
		case analyzer.ScanAnalyzer:
			scan = append(scan, concrete)
		case analyzer.GroupingAnalyzer:
			key := groupKey{
				columns: strings.Join(concrete.GroupingColumns(), groupSeparator),
				where:   concrete.Where(),
			}
			grouped[key] = append(grouped[key], concrete)
		default:
			c.metrics[a.ID()] = a.ErrorMetric(
				fmt.Errorf("%w: analyzer %s is neither scan nor grouping", analyzer.ErrResultShape, a.Name()),
			)
		}
	}

	return scan, grouped
}

func checkPreconditions(a analyzer.Analyzer, schema state.Schema) error {
	for _, cond := range a.Preconditions() {
		if err := cond.Check(schema); err != nil {
			return err
		}
	}

	return nil
}

// executeScan builds and runs the single combined scalar aggregation query.
func (c *Context) executeScan(ctx context.Context, be backend.Backend, table string, scan []analyzer.ScanAnalyzer) {
	if len(scan) == 0 {
		return
	}

	query, conflicts := buildScanQuery(table, scan)

	healthy := make([]analyzer.ScanAnalyzer, 0, len(scan))

	for _, a := range scan {
		if err, conflicted := conflicts[a.ID()]; conflicted {
			c.metrics[a.ID()] = a.ErrorMetric(err)

			continue
		}

		healthy = append(healthy, a)
	}

	if len(healthy) == 0 {
		return
	}

	rows, err := be.Query(ctx, query)

	var row analyzer.Row

	switch {
	case err == nil && len(rows) == 0:
		err = ErrEmptyResult
	case err == nil:
		row = rows[0]
	}

	for _, a := range healthy {
		if err != nil {
			c.metrics[a.ID()] = a.ErrorMetric(err)

			continue
		}

		st, stateErr := a.StateFromRow(row)
		if stateErr != nil {
			c.metrics[a.ID()] = a.ErrorMetric(stateErr)

			continue
		}

		c.states[a.ID()] = st
		c.metrics[a.ID()] = a.MetricFromState(st)
	}
}

// buildScanQuery merges aggregation fragments into one deterministic SELECT.
// Equal analyzers emit identical alias/expression pairs, which deduplicate
// here; an alias claimed by two different expressions marks its later
// claimants as conflicting.
func buildScanQuery(table string, scan []analyzer.ScanAnalyzer) (string, map[string]error) {
	exprByAlias := make(map[string]string)
	conflicts := make(map[string]error)

	for _, a := range scan {
		for _, agg := range a.Aggregations() {
			existing, ok := exprByAlias[agg.Alias]
			if ok && existing != agg.Expr {
				conflicts[a.ID()] = fmt.Errorf("%w: %s", ErrAliasConflict, agg.Alias)

				break
			}

			exprByAlias[agg.Alias] = agg.Expr
		}
	}

	aliases := make([]string, 0, len(exprByAlias))
	for alias := range exprByAlias {
		aliases = append(aliases, alias)
	}

	sort.Strings(aliases)

	fragments := make([]string, 0, len(aliases))
	for _, alias := range aliases {
		fragments = append(fragments, fmt.Sprintf("%s AS %s", exprByAlias[alias], alias))
	}

	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(fragments, ", "), table), conflicts
}

// executeGrouping runs one frequency query and fans the resulting state out
// to every analyzer sharing the grouping.
func (c *Context) executeGrouping(
	ctx context.Context,
	be backend.Backend,
	table string,
	key groupKey,
	members []analyzer.GroupingAnalyzer,
) {
	columns := strings.Split(key.columns, groupSeparator)
	query := buildGroupingQuery(table, columns, key.where)

	rows, err := be.Query(ctx, query)
	if err != nil {
		for _, a := range members {
			c.metrics[a.ID()] = a.ErrorMetric(err)
		}

		return
	}

	frequencies, err := frequenciesFromRows(columns, rows)
	if err != nil {
		for _, a := range members {
			c.metrics[a.ID()] = a.ErrorMetric(err)
		}

		return
	}

	for _, a := range members {
		c.states[a.ID()] = frequencies
		c.metrics[a.ID()] = a.MetricFromState(frequencies)
	}
}

func buildGroupingQuery(table string, columns []string, where string) string {
	selectList := strings.Join(columns, ", ")

	if where == "" {
		return fmt.Sprintf(
			"SELECT %s, COUNT(*) AS %s FROM %s GROUP BY %s",
			selectList, freqAlias, table, selectList,
		)
	}

	return fmt.Sprintf(
		"SELECT %s, COUNT(*) AS %s FROM %s WHERE %s GROUP BY %s",
		selectList, freqAlias, table, where, selectList,
	)
}

func frequenciesFromRows(columns []string, rows []map[string]any) (state.Frequencies, error) {
	counts := make(map[string]int64, len(rows))

	var numRows int64

	for _, row := range rows {
		count, err := analyzer.Row(row).Int64(freqAlias)
		if err != nil {
			return state.Frequencies{}, err
		}

		parts := make([]string, 0, len(columns))

		for _, col := range columns {
			cell, ok := row[col]
			if !ok {
				return state.Frequencies{}, fmt.Errorf(
					"%w: no grouping column %q in frequency result", analyzer.ErrResultShape, col,
				)
			}

			if cell == nil {
				parts = append(parts, nullKey)

				continue
			}

			parts = append(parts, cast.ToString(cell))
		}

		counts[strings.Join(parts, groupSeparator)] += count
		numRows += count
	}

	return state.Frequencies{Counts: counts, NumRows: numRows}, nil
}
