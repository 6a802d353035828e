// Package statestore persists analyzer states between runs.
//
// States are the mergeable sufficient statistics of a run. Persisting them
// lets a later run verify the union of two datasets without rescanning the
// first one: load the stored states, merge with the fresh ones, derive
// metrics from the merged result.
//
// Snapshots are gob-encoded and lz4-compressed, one file per snapshot.
package statestore

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/pierrec/lz4/v4"

	"github.com/veridata/veridata/internal/state"
)

func init() {
	gob.Register(state.NumMatches{})
	gob.Register(state.NumMatchesAndCount{})
	gob.Register(state.Min{})
	gob.Register(state.Max{})
	gob.Register(state.Sum{})
	gob.Register(state.Mean{})
	gob.Register(state.StandardDeviation{})
	gob.Register(state.Frequencies{})
	gob.Register(state.Distinct{})
	gob.Register(state.Schema{})
}

// snapshot is the on-disk format: analyzer identity to state.
type snapshot struct {
	Version int
	States  map[string]state.State
}

const formatVersion = 1

// Save writes the states to path, replacing any previous snapshot.
func Save(path string, states map[string]state.State) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create state snapshot: %w", err)
	}
	defer f.Close()

	zw := lz4.NewWriter(f)

	err = gob.NewEncoder(zw).Encode(snapshot{Version: formatVersion, States: states})
	if err != nil {
		return fmt.Errorf("encode state snapshot: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("flush state snapshot: %w", err)
	}

	return f.Sync()
}

// Load reads a snapshot written by Save.
func Load(path string) (map[string]state.State, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open state snapshot: %w", err)
	}
	defer f.Close()

	var snap snapshot

	err = gob.NewDecoder(lz4.NewReader(f)).Decode(&snap)
	if err != nil {
		return nil, fmt.Errorf("decode state snapshot: %w", err)
	}

	if snap.Version != formatVersion {
		return nil, fmt.Errorf("decode state snapshot: unsupported version %d", snap.Version)
	}

	return snap.States, nil
}

// Merge combines two snapshots. Identities present in both sides merge
// state-wise; identities present on one side carry over unchanged, which is
// what partition-wise analysis produces when a partition lacks some column.
//
// Identities whose states are not mergeable (exact distinct counts) are
// dropped from the result instead of failing the whole merge; their union
// statistic needs a rescan anyway. The dropped identities are returned,
// sorted, so callers can warn about them. Kind mismatches still fail: two
// snapshots disagreeing on what an identity measures are corrupt.
func Merge(a, b map[string]state.State) (map[string]state.State, []string, error) {
	merged := make(map[string]state.State, len(a)+len(b))

	for id, st := range a {
		merged[id] = st
	}

	var dropped []string

	for id, st := range b {
		existing, ok := merged[id]
		if !ok {
			merged[id] = st

			continue
		}

		combined, err := existing.Merge(st)
		if errors.Is(err, state.ErrNotMergeable) {
			delete(merged, id)
			dropped = append(dropped, id)

			continue
		}

		if err != nil {
			return nil, nil, fmt.Errorf("merge state %s: %w", id, err)
		}

		merged[id] = combined
	}

	sort.Strings(dropped)

	return merged, dropped, nil
}
