// Package backend abstracts the analytical SQL engine that executes
// aggregation queries.
//
// The core treats the backend as a synchronous query executor over a named
// relation: it must expose the relation schema and run a textual aggregation
// query, nothing more. The production implementation embeds SQLite through
// GORM; anything that can answer the two-method interface (an in-memory
// fixture, a remote warehouse adapter) plugs in the same way.
package backend

import (
	"context"
	"errors"

	"github.com/veridata/veridata/internal/state"
)

// ErrTableNotFound is returned when the bound relation does not exist.
var ErrTableNotFound = errors.New("relation not found")

// Backend executes aggregation queries against a queryable relation.
type Backend interface {
	// Schema returns the ordered column schema of the named relation.
	Schema(ctx context.Context, table string) (state.Schema, error)

	// Query runs one aggregation query and returns all result rows keyed by
	// output column name. Context deadlines and cancellation are honored at
	// this boundary.
	Query(ctx context.Context, query string) ([]map[string]any, error)
}
