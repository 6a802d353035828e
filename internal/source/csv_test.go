package source_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridata/veridata/internal/backend"
	"github.com/veridata/veridata/internal/source"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoadCSV_InfersColumnTypes(t *testing.T) {
	t.Parallel()

	be, err := backend.InMemory()
	require.NoError(t, err)

	path := writeCSV(t, "PassengerId,Name,Age,Fare\n1,Braund,25,7.25\n2,Cumings,30,71.2833\n")

	rows, err := source.LoadCSV(context.Background(), be, "passengers", path, source.Options{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, rows)

	schema, err := be.Schema(context.Background(), "passengers")
	require.NoError(t, err)

	assert.Equal(t, "INTEGER", schema.Types["PassengerId"])
	assert.Equal(t, "TEXT", schema.Types["Name"])
	assert.Equal(t, "INTEGER", schema.Types["Age"])
	assert.Equal(t, "REAL", schema.Types["Fare"])
}

func TestLoadCSV_EmptyCells_BecomeNULL(t *testing.T) {
	t.Parallel()

	be, err := backend.InMemory()
	require.NoError(t, err)

	path := writeCSV(t, "id,Sex\n1,male\n2,female\n3,\n4,female\n")

	_, err = source.LoadCSV(context.Background(), be, "nulls", path, source.Options{})
	require.NoError(t, err)

	result, err := be.Query(context.Background(),
		"SELECT COUNT(*) AS total, COUNT(Sex) AS defined FROM nulls")
	require.NoError(t, err)

	require.Len(t, result, 1)
	assert.EqualValues(t, 4, result[0]["total"])
	assert.EqualValues(t, 3, result[0]["defined"])
}

func TestLoadCSV_MixedColumn_FallsBackToText(t *testing.T) {
	t.Parallel()

	be, err := backend.InMemory()
	require.NoError(t, err)

	path := writeCSV(t, "id,code\n1,42\n2,A7\n")

	_, err = source.LoadCSV(context.Background(), be, "mixed", path, source.Options{})
	require.NoError(t, err)

	schema, err := be.Schema(context.Background(), "mixed")
	require.NoError(t, err)

	assert.Equal(t, "TEXT", schema.Types["code"])
}

func TestLoadCSV_ReplacesExistingTable(t *testing.T) {
	t.Parallel()

	be, err := backend.InMemory()
	require.NoError(t, err)

	first := writeCSV(t, "id\n1\n2\n3\n")
	second := writeCSV(t, "id\n9\n")

	_, err = source.LoadCSV(context.Background(), be, "reload", first, source.Options{})
	require.NoError(t, err)

	rows, err := source.LoadCSV(context.Background(), be, "reload", second, source.Options{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows)
}

func TestLoadCSV_HeaderOnly_LoadsEmptyTable(t *testing.T) {
	t.Parallel()

	be, err := backend.InMemory()
	require.NoError(t, err)

	path := writeCSV(t, "id,name\n")

	rows, err := source.LoadCSV(context.Background(), be, "empty", path, source.Options{})
	require.NoError(t, err)
	assert.Zero(t, rows)

	schema, err := be.Schema(context.Background(), "empty")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, schema.Columns)
}

func TestLoadCSV_NoHeader_Errors(t *testing.T) {
	t.Parallel()

	be, err := backend.InMemory()
	require.NoError(t, err)

	path := writeCSV(t, "")

	_, err = source.LoadCSV(context.Background(), be, "void", path, source.Options{})

	require.ErrorIs(t, err, source.ErrNoHeader)
}

func TestLoadCSV_CustomDelimiter(t *testing.T) {
	t.Parallel()

	be, err := backend.InMemory()
	require.NoError(t, err)

	path := writeCSV(t, "id;name\n1;alpha\n")

	rows, err := source.LoadCSV(context.Background(), be, "semis", path, source.Options{Comma: ';'})
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows)
}
