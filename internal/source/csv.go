// Package source loads external datasets into backend relations so the
// verification engine can query them.
//
// The CSV loader infers a SQLite column type per header from the data:
// INTEGER if every non-empty cell parses as an integer, REAL if every
// non-empty cell parses as a number, TEXT otherwise. Empty cells load as
// NULL, which is what completeness analyzers count.
package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/veridata/veridata/internal/backend"
)

// ErrNoHeader is returned for CSV inputs without a header row.
var ErrNoHeader = errors.New("csv input has no header row")

// ErrNoColumns is returned for CSV inputs with an empty header row.
var ErrNoColumns = errors.New("csv header has no columns")

// insertBatch bounds the number of rows per INSERT statement, keeping each
// statement under SQLite's bound-parameter limit for wide tables.
const insertBatch = 200

// Options tune CSV parsing.
type Options struct {
	// Comma is the field delimiter; ',' when zero.
	Comma rune
}

// LoadCSV reads the file at path into a fresh backend table and returns the
// number of data rows loaded. An existing table of the same name is replaced.
func LoadCSV(ctx context.Context, be *backend.SQLite, table, path string, opts Options) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	return loadCSV(ctx, be, table, f, opts)
}

func loadCSV(ctx context.Context, be *backend.SQLite, table string, r io.Reader, opts Options) (int64, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = false

	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return 0, ErrNoHeader
	}

	if err != nil {
		return 0, fmt.Errorf("read csv header: %w", err)
	}

	if len(header) == 0 {
		return 0, ErrNoColumns
	}

	var records [][]string

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return 0, fmt.Errorf("read csv row: %w", err)
		}

		records = append(records, record)
	}

	types := inferTypes(header, records)

	if err := createTable(ctx, be, table, header, types); err != nil {
		return 0, err
	}

	if err := insertRecords(ctx, be, table, header, types, records); err != nil {
		return 0, err
	}

	return int64(len(records)), nil
}

// inferTypes picks the narrowest SQLite type every non-empty cell of a
// column fits.
func inferTypes(header []string, records [][]string) []string {
	couldBeInt := make([]bool, len(header))
	couldBeReal := make([]bool, len(header))
	hasValue := make([]bool, len(header))

	for i := range header {
		couldBeInt[i] = true
		couldBeReal[i] = true
	}

	for _, record := range records {
		for i := range header {
			if i >= len(record) || record[i] == "" {
				continue
			}

			hasValue[i] = true
			cell := strings.TrimSpace(record[i])

			if couldBeInt[i] {
				if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
					couldBeInt[i] = false
				}
			}

			if couldBeReal[i] {
				if _, err := strconv.ParseFloat(cell, 64); err != nil {
					couldBeReal[i] = false
				}
			}
		}
	}

	types := make([]string, len(header))

	for i := range header {
		switch {
		case !hasValue[i]:
			types[i] = "TEXT"
		case couldBeInt[i]:
			types[i] = "INTEGER"
		case couldBeReal[i]:
			types[i] = "REAL"
		default:
			types[i] = "TEXT"
		}
	}

	return types
}

func createTable(ctx context.Context, be *backend.SQLite, table string, header, types []string) error {
	if err := be.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(table))); err != nil {
		return fmt.Errorf("drop stale table %s: %w", table, err)
	}

	columns := make([]string, 0, len(header))
	for i, name := range header {
		columns = append(columns, quoteIdent(name)+" "+types[i])
	}

	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(columns, ", "))
	if err := be.Exec(ctx, create); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}

	return nil
}

func insertRecords(ctx context.Context, be *backend.SQLite, table string, header, types []string, records [][]string) error {
	if len(records) == 0 {
		return nil
	}

	columns := make([]string, 0, len(header))
	for _, name := range header {
		columns = append(columns, quoteIdent(name))
	}

	rowPlaceholder := "(" + strings.TrimSuffix(strings.Repeat("?,", len(header)), ",") + ")"
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", quoteIdent(table), strings.Join(columns, ", "))

	for start := 0; start < len(records); start += insertBatch {
		end := start + insertBatch
		if end > len(records) {
			end = len(records)
		}

		batch := records[start:end]
		placeholders := make([]string, 0, len(batch))
		args := make([]any, 0, len(batch)*len(header))

		for _, record := range batch {
			placeholders = append(placeholders, rowPlaceholder)

			for i := range header {
				args = append(args, cellValue(record, i, types[i]))
			}
		}

		statement := prefix + strings.Join(placeholders, ", ")
		if err := be.Exec(ctx, statement, args...); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}

	return nil
}

// cellValue converts one CSV cell to its typed SQL argument. Empty cells and
// missing trailing fields become NULL.
func cellValue(record []string, i int, sqlType string) any {
	if i >= len(record) || record[i] == "" {
		return nil
	}

	cell := strings.TrimSpace(record[i])

	switch sqlType {
	case "INTEGER":
		v, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return record[i]
		}

		return v
	case "REAL":
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return record[i]
		}

		return v
	default:
		return record[i]
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
