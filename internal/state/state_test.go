package state_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridata/veridata/internal/state"
)

func TestNumMatches_Merge_AddsCounts(t *testing.T) {
	t.Parallel()

	merged, err := state.NumMatches{Matches: 3}.Merge(state.NumMatches{Matches: 4})
	require.NoError(t, err)

	expected := int64(7)
	assert.Equal(t, expected, merged.(state.NumMatches).Matches)
}

func TestNumMatches_Merge_KindMismatch_Errors(t *testing.T) {
	t.Parallel()

	_, err := state.NumMatches{Matches: 3}.Merge(state.Sum{Value: 1, Defined: true})

	require.ErrorIs(t, err, state.ErrKindMismatch)
}

func TestNumMatchesAndCount_Ratio(t *testing.T) {
	t.Parallel()

	ratio, defined := state.NumMatchesAndCount{Matches: 3, Count: 4}.Ratio()

	require.True(t, defined)
	assert.InDelta(t, 0.75, ratio, 1e-9)
}

func TestNumMatchesAndCount_Ratio_ZeroCount_Undefined(t *testing.T) {
	t.Parallel()

	_, defined := state.NumMatchesAndCount{}.Ratio()

	assert.False(t, defined)
}

func TestMin_Merge_KeepsSmaller(t *testing.T) {
	t.Parallel()

	merged, err := state.Min{Value: 5, Defined: true}.Merge(state.Min{Value: -2, Defined: true})
	require.NoError(t, err)

	assert.InDelta(t, -2.0, merged.(state.Min).Value, 1e-9)
}

func TestMin_Merge_UndefinedSide_KeepsDefined(t *testing.T) {
	t.Parallel()

	merged, err := state.Min{}.Merge(state.Min{Value: 9, Defined: true})
	require.NoError(t, err)

	require.True(t, merged.(state.Min).Defined)
	assert.InDelta(t, 9.0, merged.(state.Min).Value, 1e-9)
}

func TestMax_Merge_KeepsLarger(t *testing.T) {
	t.Parallel()

	merged, err := state.Max{Value: 5, Defined: true}.Merge(state.Max{Value: 40, Defined: true})
	require.NoError(t, err)

	assert.InDelta(t, 40.0, merged.(state.Max).Value, 1e-9)
}

func TestMean_Merge_MatchesPooledMean(t *testing.T) {
	t.Parallel()

	// [25, 30] pooled with [-5, 40] averages to 22.5.
	left := state.Mean{Total: 55, Count: 2}
	right := state.Mean{Total: 35, Count: 2}

	merged, err := left.Merge(right)
	require.NoError(t, err)

	value, defined := merged.(state.Mean).Value()
	require.True(t, defined)
	assert.InDelta(t, 22.5, value, 1e-9)
}

func TestStandardDeviation_Value_MatchesDirectComputation(t *testing.T) {
	t.Parallel()

	// Population stddev of [25, 30, -5, 40].
	values := []float64{25, 30, -5, 40}

	var sum, sumSq float64
	for _, v := range values {
		sum += v
		sumSq += v * v
	}

	st := state.StandardDeviation{N: int64(len(values)), Sum: sum, SumSq: sumSq}

	got, defined := st.Value()
	require.True(t, defined)

	mean := sum / float64(len(values))

	var direct float64
	for _, v := range values {
		direct += (v - mean) * (v - mean)
	}

	direct = math.Sqrt(direct / float64(len(values)))

	assert.InDelta(t, direct, got, 1e-9)
}

func TestStandardDeviation_Merge_EqualsSinglePass(t *testing.T) {
	t.Parallel()

	whole := state.StandardDeviation{N: 4, Sum: 90, SumSq: 3150}
	left := state.StandardDeviation{N: 2, Sum: 55, SumSq: 1525}
	right := state.StandardDeviation{N: 2, Sum: 35, SumSq: 1625}

	merged, err := left.Merge(right)
	require.NoError(t, err)

	wantValue, wantDefined := whole.Value()
	gotValue, gotDefined := merged.(state.StandardDeviation).Value()

	require.Equal(t, wantDefined, gotDefined)
	assert.InDelta(t, wantValue, gotValue, 1e-9)
}

func TestFrequencies_Merge_AddsPerValueCounts(t *testing.T) {
	t.Parallel()

	left := state.Frequencies{Counts: map[string]int64{"a": 2, "b": 1}, NumRows: 3}
	right := state.Frequencies{Counts: map[string]int64{"b": 1, "c": 1}, NumRows: 2}

	merged, err := left.Merge(right)
	require.NoError(t, err)

	got := merged.(state.Frequencies)

	expectedRows := int64(5)
	assert.Equal(t, expectedRows, got.NumRows)
	assert.Equal(t, int64(2), got.Counts["a"])
	assert.Equal(t, int64(2), got.Counts["b"])
	assert.Equal(t, int64(1), got.Counts["c"])
}

func TestFrequencies_Merge_DoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	left := state.Frequencies{Counts: map[string]int64{"a": 1}, NumRows: 1}
	right := state.Frequencies{Counts: map[string]int64{"a": 1}, NumRows: 1}

	_, err := left.Merge(right)
	require.NoError(t, err)

	assert.Equal(t, int64(1), left.Counts["a"])
	assert.Equal(t, int64(1), right.Counts["a"])
}

func TestDistinct_Merge_NotMergeable(t *testing.T) {
	t.Parallel()

	_, err := state.Distinct{Distinct: 2, NumRows: 3}.Merge(state.Distinct{Distinct: 1, NumRows: 1})

	require.ErrorIs(t, err, state.ErrNotMergeable)
}

func TestSchema_Merge_EqualSchemas_Succeeds(t *testing.T) {
	t.Parallel()

	a := state.Schema{Columns: []string{"id"}, Types: map[string]string{"id": "INTEGER"}}
	b := state.Schema{Columns: []string{"id"}, Types: map[string]string{"id": "INTEGER"}}

	merged, err := a.Merge(b)
	require.NoError(t, err)
	assert.Equal(t, a.Columns, merged.(state.Schema).Columns)
}

func TestSchema_Merge_DifferentSchemas_Errors(t *testing.T) {
	t.Parallel()

	a := state.Schema{Columns: []string{"id"}, Types: map[string]string{"id": "INTEGER"}}
	b := state.Schema{Columns: []string{"id"}, Types: map[string]string{"id": "TEXT"}}

	_, err := a.Merge(b)

	require.ErrorIs(t, err, state.ErrSchemaMismatch)
}

func TestMerge_Associativity(t *testing.T) {
	t.Parallel()

	a := state.Sum{Value: 1, Defined: true}
	b := state.Sum{Value: 2, Defined: true}
	c := state.Sum{Value: 4, Defined: true}

	ab, err := a.Merge(b)
	require.NoError(t, err)
	abc, err := ab.Merge(c)
	require.NoError(t, err)

	bc, err := b.Merge(c)
	require.NoError(t, err)
	abc2, err := a.Merge(bc)
	require.NoError(t, err)

	assert.InDelta(t, abc.(state.Sum).Value, abc2.(state.Sum).Value, 1e-9)
}

func TestMerge_Commutativity(t *testing.T) {
	t.Parallel()

	a := state.NumMatchesAndCount{Matches: 3, Count: 4}
	b := state.NumMatchesAndCount{Matches: 1, Count: 2}

	ab, err := a.Merge(b)
	require.NoError(t, err)
	ba, err := b.Merge(a)
	require.NoError(t, err)

	assert.Equal(t, ab, ba)
}
