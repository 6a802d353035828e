// Package state implements the mergeable sufficient statistics that back
// every metric.
//
// A state captures everything a metric derivation needs, so that metrics can
// be recomputed from states without touching the source relation, and so that
// states computed over disjoint row partitions can be merged into the state
// of the union. Merge is commutative and associative for every kind; states
// are never mutated in place.
package state

import (
	"errors"
	"fmt"
	"math"
)

// Kind identifies a state variant.
type Kind string

// State kinds.
const (
	KindNumMatches         Kind = "num_matches"
	KindNumMatchesAndCount Kind = "num_matches_and_count"
	KindMin                Kind = "min"
	KindMax                Kind = "max"
	KindSum                Kind = "sum"
	KindMean               Kind = "mean"
	KindStandardDeviation  Kind = "standard_deviation"
	KindFrequencies        Kind = "frequencies"
	KindDistinct           Kind = "distinct"
	KindSchema             Kind = "schema"
)

// ErrKindMismatch is returned when two states of different kinds are merged.
var ErrKindMismatch = errors.New("cannot merge states of different kinds")

// ErrNotMergeable is returned by states whose merge cannot be computed from
// the retained statistics alone.
var ErrNotMergeable = errors.New("state kind is not mergeable")

// ErrSchemaMismatch is returned when two schema states over the same relation
// disagree.
var ErrSchemaMismatch = errors.New("schema states disagree")

// State is a mergeable sufficient statistic.
type State interface {
	Kind() Kind

	// Merge combines this state with another of the same kind into a new
	// state equivalent to a single-pass computation over the union of the
	// underlying row partitions. Neither operand is modified.
	Merge(other State) (State, error)
}

func kindMismatch(want Kind, got State) error {
	return fmt.Errorf("%w: %s and %s", ErrKindMismatch, want, got.Kind())
}

// NumMatches counts rows matching a condition (or all rows).
type NumMatches struct {
	Matches int64
}

// Kind implements State.
func (s NumMatches) Kind() Kind { return KindNumMatches }

// Merge implements State.
func (s NumMatches) Merge(other State) (State, error) {
	o, ok := other.(NumMatches)
	if !ok {
		return nil, kindMismatch(s.Kind(), other)
	}

	return NumMatches{Matches: s.Matches + o.Matches}, nil
}

// NumMatchesAndCount counts matching rows against a total, backing ratio
// metrics such as completeness and compliance.
type NumMatchesAndCount struct {
	Matches int64
	Count   int64
}

// Kind implements State.
func (s NumMatchesAndCount) Kind() Kind { return KindNumMatchesAndCount }

// Merge implements State.
func (s NumMatchesAndCount) Merge(other State) (State, error) {
	o, ok := other.(NumMatchesAndCount)
	if !ok {
		return nil, kindMismatch(s.Kind(), other)
	}

	return NumMatchesAndCount{
		Matches: s.Matches + o.Matches,
		Count:   s.Count + o.Count,
	}, nil
}

// Ratio returns matches/count, or false when the denominator is zero.
func (s NumMatchesAndCount) Ratio() (float64, bool) {
	if s.Count == 0 {
		return 0, false
	}

	return float64(s.Matches) / float64(s.Count), true
}

// Min tracks the minimum value seen. Defined is false over empty partitions.
type Min struct {
	Value   float64
	Defined bool
}

// Kind implements State.
func (s Min) Kind() Kind { return KindMin }

// Merge implements State.
func (s Min) Merge(other State) (State, error) {
	o, ok := other.(Min)
	if !ok {
		return nil, kindMismatch(s.Kind(), other)
	}

	switch {
	case !s.Defined:
		return o, nil
	case !o.Defined:
		return s, nil
	case o.Value < s.Value:
		return o, nil
	default:
		return s, nil
	}
}

// Max tracks the maximum value seen. Defined is false over empty partitions.
type Max struct {
	Value   float64
	Defined bool
}

// Kind implements State.
func (s Max) Kind() Kind { return KindMax }

// Merge implements State.
func (s Max) Merge(other State) (State, error) {
	o, ok := other.(Max)
	if !ok {
		return nil, kindMismatch(s.Kind(), other)
	}

	switch {
	case !s.Defined:
		return o, nil
	case !o.Defined:
		return s, nil
	case o.Value > s.Value:
		return o, nil
	default:
		return s, nil
	}
}

// Sum tracks a running sum. Defined is false over empty partitions.
type Sum struct {
	Value   float64
	Defined bool
}

// Kind implements State.
func (s Sum) Kind() Kind { return KindSum }

// Merge implements State.
func (s Sum) Merge(other State) (State, error) {
	o, ok := other.(Sum)
	if !ok {
		return nil, kindMismatch(s.Kind(), other)
	}

	switch {
	case !s.Defined:
		return o, nil
	case !o.Defined:
		return s, nil
	default:
		return Sum{Value: s.Value + o.Value, Defined: true}, nil
	}
}

// Mean tracks a running total and count.
type Mean struct {
	Total float64
	Count int64
}

// Kind implements State.
func (s Mean) Kind() Kind { return KindMean }

// Merge implements State.
func (s Mean) Merge(other State) (State, error) {
	o, ok := other.(Mean)
	if !ok {
		return nil, kindMismatch(s.Kind(), other)
	}

	return Mean{Total: s.Total + o.Total, Count: s.Count + o.Count}, nil
}

// Value returns the mean, or false over zero rows.
func (s Mean) Value() (float64, bool) {
	if s.Count == 0 {
		return 0, false
	}

	return s.Total / float64(s.Count), true
}

// StandardDeviation retains count, sum and sum of squares, from which the
// population standard deviation is derived.
type StandardDeviation struct {
	N     int64
	Sum   float64
	SumSq float64
}

// Kind implements State.
func (s StandardDeviation) Kind() Kind { return KindStandardDeviation }

// Merge implements State.
func (s StandardDeviation) Merge(other State) (State, error) {
	o, ok := other.(StandardDeviation)
	if !ok {
		return nil, kindMismatch(s.Kind(), other)
	}

	return StandardDeviation{
		N:     s.N + o.N,
		Sum:   s.Sum + o.Sum,
		SumSq: s.SumSq + o.SumSq,
	}, nil
}

// Value returns the population standard deviation, or false over zero rows.
func (s StandardDeviation) Value() (float64, bool) {
	if s.N == 0 {
		return 0, false
	}

	n := float64(s.N)
	mean := s.Sum / n

	variance := s.SumSq/n - mean*mean
	if variance < 0 {
		// Floating-point cancellation can push tiny variances below zero.
		variance = 0
	}

	return math.Sqrt(variance), true
}

// Frequencies holds the occurrence count per distinct grouping value plus the
// number of rows scanned. Memory is bounded by the grouping cardinality;
// high-cardinality columns should prefer the distinct-count analyzer.
type Frequencies struct {
	Counts  map[string]int64
	NumRows int64
}

// Kind implements State.
func (s Frequencies) Kind() Kind { return KindFrequencies }

// Merge implements State.
func (s Frequencies) Merge(other State) (State, error) {
	o, ok := other.(Frequencies)
	if !ok {
		return nil, kindMismatch(s.Kind(), other)
	}

	merged := make(map[string]int64, len(s.Counts)+len(o.Counts))
	for value, count := range s.Counts {
		merged[value] = count
	}

	for value, count := range o.Counts {
		merged[value] += count
	}

	return Frequencies{Counts: merged, NumRows: s.NumRows + o.NumRows}, nil
}

// Distinct holds an exact or sketch-estimated distinct count. Exact distinct
// counts are not mergeable without the full value set; use Frequencies when
// partitioned computation is required.
type Distinct struct {
	Distinct int64
	NumRows  int64
}

// Kind implements State.
func (s Distinct) Kind() Kind { return KindDistinct }

// Merge implements State.
func (s Distinct) Merge(other State) (State, error) {
	if _, ok := other.(Distinct); !ok {
		return nil, kindMismatch(s.Kind(), other)
	}

	return nil, fmt.Errorf("%w: %s", ErrNotMergeable, s.Kind())
}

// Schema snapshots the relation schema. Columns preserves declaration order;
// Types maps column name to declared type.
type Schema struct {
	Columns []string
	Types   map[string]string
}

// Kind implements State.
func (s Schema) Kind() Kind { return KindSchema }

// Merge implements State. Row partitions of one relation share a schema, so
// merging equal schemas returns the receiver and anything else is an error.
func (s Schema) Merge(other State) (State, error) {
	o, ok := other.(Schema)
	if !ok {
		return nil, kindMismatch(s.Kind(), other)
	}

	if len(s.Columns) != len(o.Columns) {
		return nil, ErrSchemaMismatch
	}

	for i, col := range s.Columns {
		if o.Columns[i] != col || s.Types[col] != o.Types[col] {
			return nil, ErrSchemaMismatch
		}
	}

	return s, nil
}
