package statestore_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridata/veridata/internal/state"
	"github.com/veridata/veridata/internal/statestore"
)

func snapshotPath(t *testing.T) string {
	t.Helper()

	return filepath.Join(t.TempDir(), "states.bin")
}

func TestSaveLoad_Roundtrip(t *testing.T) {
	t.Parallel()

	states := map[string]state.State{
		"Size|*|":             state.NumMatches{Matches: 4},
		"Completeness|Sex|":   state.NumMatchesAndCount{Matches: 3, Count: 4},
		"Minimum|Age|":        state.Min{Value: -5, Defined: true},
		"Mean|Age|":           state.Mean{Total: 90, Count: 4},
		"Uniqueness|PassengerId|": state.Frequencies{
			Counts:  map[string]int64{"1": 1, "2": 1, "3": 1, "4": 1},
			NumRows: 4,
		},
	}

	path := snapshotPath(t)
	require.NoError(t, statestore.Save(path, states))

	loaded, err := statestore.Load(path)
	require.NoError(t, err)

	require.Len(t, loaded, len(states))
	assert.Equal(t, states["Size|*|"], loaded["Size|*|"])
	assert.Equal(t, states["Minimum|Age|"], loaded["Minimum|Age|"])
	assert.Equal(t, states["Uniqueness|PassengerId|"], loaded["Uniqueness|PassengerId|"])
}

func TestLoad_MissingFile_Errors(t *testing.T) {
	t.Parallel()

	_, err := statestore.Load(filepath.Join(t.TempDir(), "absent.bin"))

	require.Error(t, err)
}

func TestMerge_PartitionedStates_EqualWholeDataset(t *testing.T) {
	t.Parallel()

	left := map[string]state.State{
		"Size|*|": state.NumMatches{Matches: 2},
		"Mean|Age|": state.Mean{Total: 55, Count: 2},
	}
	right := map[string]state.State{
		"Size|*|": state.NumMatches{Matches: 2},
		"Mean|Age|": state.Mean{Total: 35, Count: 2},
	}

	merged, dropped, err := statestore.Merge(left, right)
	require.NoError(t, err)
	assert.Empty(t, dropped)

	assert.Equal(t, state.NumMatches{Matches: 4}, merged["Size|*|"])

	mean, defined := merged["Mean|Age|"].(state.Mean).Value()
	require.True(t, defined)
	assert.InDelta(t, 22.5, mean, 1e-9)
}

func TestMerge_OneSidedIdentity_CarriesOver(t *testing.T) {
	t.Parallel()

	left := map[string]state.State{"Size|*|": state.NumMatches{Matches: 2}}
	right := map[string]state.State{"Minimum|Age|": state.Min{Value: 1, Defined: true}}

	merged, _, err := statestore.Merge(left, right)
	require.NoError(t, err)

	assert.Len(t, merged, 2)
}

func TestMerge_KindMismatch_Errors(t *testing.T) {
	t.Parallel()

	left := map[string]state.State{"Size|*|": state.NumMatches{Matches: 2}}
	right := map[string]state.State{"Size|*|": state.Sum{Value: 2, Defined: true}}

	_, _, err := statestore.Merge(left, right)

	require.ErrorIs(t, err, state.ErrKindMismatch)
}

func TestMerge_NonMergeableState_DroppedNotFatal(t *testing.T) {
	t.Parallel()

	left := map[string]state.State{
		"Size|*|":                 state.NumMatches{Matches: 2},
		"ApproxDistinctness|Sex|": state.Distinct{Distinct: 2, NumRows: 2},
	}
	right := map[string]state.State{
		"Size|*|":                 state.NumMatches{Matches: 2},
		"ApproxDistinctness|Sex|": state.Distinct{Distinct: 1, NumRows: 2},
	}

	merged, dropped, err := statestore.Merge(left, right)
	require.NoError(t, err)

	// The mergeable identity still combines; only the distinct count goes.
	assert.Equal(t, state.NumMatches{Matches: 4}, merged["Size|*|"])
	assert.NotContains(t, merged, "ApproxDistinctness|Sex|")
	assert.Equal(t, []string{"ApproxDistinctness|Sex|"}, dropped)
}

func TestSaveLoadMerge_EndToEnd(t *testing.T) {
	t.Parallel()

	first := snapshotPath(t)
	second := snapshotPath(t)

	require.NoError(t, statestore.Save(first, map[string]state.State{
		"Completeness|Sex|": state.NumMatchesAndCount{Matches: 1, Count: 2},
	}))
	require.NoError(t, statestore.Save(second, map[string]state.State{
		"Completeness|Sex|": state.NumMatchesAndCount{Matches: 2, Count: 2},
	}))

	a, err := statestore.Load(first)
	require.NoError(t, err)
	b, err := statestore.Load(second)
	require.NoError(t, err)

	merged, _, err := statestore.Merge(a, b)
	require.NoError(t, err)

	ratio, defined := merged["Completeness|Sex|"].(state.NumMatchesAndCount).Ratio()
	require.True(t, defined)
	assert.InDelta(t, 0.75, ratio, 1e-9)
}
