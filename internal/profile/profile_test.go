package profile_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridata/veridata/internal/backend"
	"github.com/veridata/veridata/internal/profile"
)

func TestDataset_ProfilesEveryColumn(t *testing.T) {
	t.Parallel()

	be, err := backend.InMemory()
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, be.Exec(ctx,
		`CREATE TABLE prof (PassengerId INTEGER, Name TEXT, Age INTEGER)`))
	require.NoError(t, be.Exec(ctx,
		`INSERT INTO prof (PassengerId, Name, Age) VALUES
			(1, 'Braund', 25), (2, 'Cumings', 30), (3, 'Heikkinen', -5), (4, 'Futrelle', 40)`))

	p, err := profile.Dataset(ctx, be, "prof")
	require.NoError(t, err)

	assert.EqualValues(t, 4, p.Rows)
	require.Len(t, p.Columns, 3)

	byName := map[string]profile.Column{}
	for _, col := range p.Columns {
		byName[col.Name] = col
	}

	age := byName["Age"]
	require.NotNil(t, age.Minimum)
	assert.InDelta(t, -5.0, *age.Minimum, 1e-9)
	require.NotNil(t, age.Maximum)
	assert.InDelta(t, 40.0, *age.Maximum, 1e-9)
	require.NotNil(t, age.Mean)
	assert.InDelta(t, 22.5, *age.Mean, 1e-9)
	require.NotNil(t, age.Completeness)
	assert.InDelta(t, 1.0, *age.Completeness, 1e-9)

	name := byName["Name"]
	// Numeric statistics are undefined for TEXT columns.
	assert.Nil(t, name.Minimum)
	assert.Nil(t, name.Mean)
	require.NotNil(t, name.MinLength)
	assert.InDelta(t, 6.0, *name.MinLength, 1e-9)
	require.NotNil(t, name.ApproxDistinctness)
	assert.InDelta(t, 1.0, *name.ApproxDistinctness, 1e-9)
}

func TestDataset_MissingTable_Errors(t *testing.T) {
	t.Parallel()

	be, err := backend.InMemory()
	require.NoError(t, err)

	_, err = profile.Dataset(context.Background(), be, "ghosts")

	require.ErrorIs(t, err, backend.ErrTableNotFound)
}
