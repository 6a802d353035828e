// Package metric defines the typed values derived from analyzer states and
// the table that collects them during a verification run.
//
// A metric is identified by the (entity, name, instance) triple plus a
// qualifier carrying the row filter (and, for compliance, the predicate
// expression), so filtered and unfiltered variants of one statistic coexist.
// Its value is either a successfully computed number (or structured map, for
// schema snapshots) or the error that prevented computation. Undefined
// values, such as the mean of zero rows, are carried as errors rather than
// NaN surprises.
package metric

import (
	"errors"
	"fmt"
	"sort"
)

// Entity describes what a metric is measured over.
type Entity string

// Metric entities.
const (
	EntityDataset     Entity = "dataset"
	EntityColumn      Entity = "column"
	EntityMultiColumn Entity = "multicolumn"
)

// ErrValueUndefined is carried by metrics whose value could not be defined,
// e.g. a ratio with a zero denominator or the minimum of an empty column.
var ErrValueUndefined = errors.New("metric value undefined")

// ErrNotNumeric is returned when a numeric value is requested from a
// structured metric.
var ErrNotNumeric = errors.New("metric value is not numeric")

// Value holds either a computed metric value or the error that prevented its
// computation. The zero Value is a failure with ErrValueUndefined.
type Value struct {
	value any
	err   error
}

// FromFloat wraps a successfully computed numeric value.
func FromFloat(v float64) Value {
	return Value{value: v}
}

// FromSchema wraps a schema snapshot (column name -> declared type).
func FromSchema(schema map[string]string) Value {
	return Value{value: schema}
}

// FromError wraps a computation failure.
func FromError(err error) Value {
	if err == nil {
		err = ErrValueUndefined
	}

	return Value{err: err}
}

// IsSuccess reports whether the value was computed.
func (v Value) IsSuccess() bool {
	return v.err == nil && v.value != nil
}

// Err returns the computation error, or nil for a successful value.
func (v Value) Err() error {
	if v.err == nil && v.value == nil {
		return ErrValueUndefined
	}

	return v.err
}

// Float64 returns the numeric value, or an error for failed or structured
// values.
func (v Value) Float64() (float64, error) {
	if err := v.Err(); err != nil {
		return 0, err
	}

	f, ok := v.value.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %T", ErrNotNumeric, v.value)
	}

	return f, nil
}

// Schema returns the structured schema value, or an error for failed or
// numeric values.
func (v Value) Schema() (map[string]string, error) {
	if err := v.Err(); err != nil {
		return nil, err
	}

	schema, ok := v.value.(map[string]string)
	if !ok {
		return nil, fmt.Errorf("%w: %T is not a schema", ErrNotNumeric, v.value)
	}

	return schema, nil
}

// String renders the value for report output.
func (v Value) String() string {
	if err := v.Err(); err != nil {
		return fmt.Sprintf("error: %v", err)
	}

	switch val := v.value.(type) {
	case float64:
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Metric is a named, typed value derived deterministically from one or more
// states. Approx marks analyzers whose computation is permitted to be
// approximate (e.g. sketch-backed distinct counts) and therefore exempt from
// the run-to-run determinism guarantee.
type Metric struct {
	Entity   Entity
	Name     string
	Instance string

	// Qualifier disambiguates analyzers sharing the triple: the row filter,
	// plus the predicate expression for compliance metrics. Empty for plain
	// unfiltered statistics.
	Qualifier string

	Value  Value
	Approx bool

	// Detail is optional analyzer-provided context appended to failure
	// messages, e.g. the duplicated group count behind a uniqueness ratio.
	Detail string
}

// Key returns the stable identity of the metric.
func (m Metric) Key() Key {
	return Key{Entity: m.Entity, Name: m.Name, Instance: m.Instance, Qualifier: m.Qualifier}
}

// Key identifies a metric in the metric table. It mirrors the identity of
// the analyzer that produced the metric: analyzers with distinct identities
// publish under distinct keys.
type Key struct {
	Entity    Entity
	Name      string
	Instance  string
	Qualifier string
}

// String renders the key for messages and report rows.
func (k Key) String() string {
	if k.Qualifier == "" {
		return fmt.Sprintf("%s(%s)", k.Name, k.Instance)
	}

	return fmt.Sprintf("%s(%s, %s)", k.Name, k.Instance, k.Qualifier)
}

// Table is an immutable collection of metrics keyed by identity. It is built
// once per run by the analysis runner.
type Table struct {
	metrics map[Key]Metric
}

// NewTable creates a table from computed metrics. Later duplicates of the
// same key overwrite earlier ones; the runner never produces duplicates.
func NewTable(metrics []Metric) *Table {
	indexed := make(map[Key]Metric, len(metrics))
	for _, m := range metrics {
		indexed[m.Key()] = m
	}

	return &Table{metrics: indexed}
}

// Lookup returns the metric for the given key.
func (t *Table) Lookup(key Key) (Metric, bool) {
	m, ok := t.metrics[key]

	return m, ok
}

// Len returns the number of metrics in the table.
func (t *Table) Len() int {
	return len(t.metrics)
}

// All returns the metrics sorted by (entity, name, instance) for stable
// report output.
func (t *Table) All() []Metric {
	all := make([]Metric, 0, len(t.metrics))
	for _, m := range t.metrics {
		all = append(all, m)
	}

	sort.Slice(all, func(i, j int) bool {
		a, b := all[i].Key(), all[j].Key()
		if a.Entity != b.Entity {
			return a.Entity < b.Entity
		}

		if a.Name != b.Name {
			return a.Name < b.Name
		}

		if a.Instance != b.Instance {
			return a.Instance < b.Instance
		}

		return a.Qualifier < b.Qualifier
	})

	return all
}
