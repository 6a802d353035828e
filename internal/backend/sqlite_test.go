package backend_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridata/veridata/internal/backend"
)

func openSeeded(t *testing.T) *backend.SQLite {
	t.Helper()

	be, err := backend.InMemory()
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, be.Exec(ctx, `CREATE TABLE items (id INTEGER, label TEXT)`))
	require.NoError(t, be.Exec(ctx, `INSERT INTO items (id, label) VALUES (1, 'alpha'), (2, 'beta')`))

	return be
}

func TestSchema_ReturnsDeclaredColumns(t *testing.T) {
	t.Parallel()

	be := openSeeded(t)

	schema, err := be.Schema(context.Background(), "items")
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "label"}, schema.Columns)
	assert.Equal(t, "INTEGER", schema.Types["id"])
	assert.Equal(t, "TEXT", schema.Types["label"])
}

func TestSchema_UnknownTable_Errors(t *testing.T) {
	t.Parallel()

	be, err := backend.InMemory()
	require.NoError(t, err)

	_, err = be.Schema(context.Background(), "ghosts")

	require.ErrorIs(t, err, backend.ErrTableNotFound)
}

func TestQuery_AggregationRow(t *testing.T) {
	t.Parallel()

	be := openSeeded(t)

	rows, err := be.Query(context.Background(), "SELECT COUNT(*) AS n FROM items")
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.EqualValues(t, 2, rows[0]["n"])
}

func TestQuery_RegexpMatches_FullMatchOnly(t *testing.T) {
	t.Parallel()

	be := openSeeded(t)

	rows, err := be.Query(context.Background(),
		`SELECT SUM(CASE WHEN regexp_matches(label, 'alp.*') THEN 1 ELSE 0 END) AS matched,
		        SUM(CASE WHEN regexp_matches(label, 'lph') THEN 1 ELSE 0 END) AS partial
		 FROM items`)
	require.NoError(t, err)

	require.Len(t, rows, 1)
	// 'alp.*' fully matches 'alpha'; 'lph' is only a substring and must not.
	assert.EqualValues(t, 1, rows[0]["matched"])
	assert.EqualValues(t, 0, rows[0]["partial"])
}

func TestInMemory_InstancesAreIsolated(t *testing.T) {
	t.Parallel()

	first := openSeeded(t)

	second, err := backend.InMemory()
	require.NoError(t, err)

	_, err = second.Schema(context.Background(), "items")
	require.ErrorIs(t, err, backend.ErrTableNotFound)

	_, err = first.Schema(context.Background(), "items")
	assert.NoError(t, err)
}
