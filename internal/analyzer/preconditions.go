package analyzer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/veridata/veridata/internal/state"
)

// Configuration and computation errors surfaced per-analyzer.
var (
	// ErrResultShape indicates a query result inconsistent with the
	// analyzer's expected aggregation mapping.
	ErrResultShape = errors.New("unexpected aggregation result shape")

	// ErrColumnMissing indicates an analyzer references a column absent from
	// the relation schema.
	ErrColumnMissing = errors.New("column not found in schema")

	// ErrColumnNotNumeric indicates a numeric analyzer targets a non-numeric
	// column.
	ErrColumnNotNumeric = errors.New("column is not numeric")

	// ErrColumnNotString indicates a string analyzer targets a non-string
	// column.
	ErrColumnNotString = errors.New("column is not a string column")

	// ErrNoColumns indicates a multi-column analyzer received no columns.
	ErrNoColumns = errors.New("at least one column required")
)

// numericTypes and stringTypes classify declared SQL column types.
var numericTypes = map[string]struct{}{
	"NUMERIC": {}, "TINYINT": {}, "SMALLINT": {}, "INTEGER": {}, "INT": {},
	"BIGINT": {}, "HUGEINT": {}, "FLOAT": {}, "DOUBLE": {}, "REAL": {},
	"DECIMAL": {},
}

var stringTypes = map[string]struct{}{
	"VARCHAR": {}, "NVARCHAR": {}, "CLOB": {}, "TEXT": {},
}

// Precondition is an eager schema-level requirement of an analyzer.
type Precondition interface {
	// Check validates the requirement against the relation schema.
	Check(schema state.Schema) error
}

// HasColumn requires the column to exist in the relation.
type HasColumn struct {
	Column string
}

// Check implements Precondition.
func (p HasColumn) Check(schema state.Schema) error {
	if _, ok := schema.Types[p.Column]; !ok {
		return fmt.Errorf("%w: %s", ErrColumnMissing, p.Column)
	}

	return nil
}

// IsNumeric requires a numeric declared type.
type IsNumeric struct {
	Column string
}

// Check implements Precondition.
func (p IsNumeric) Check(schema state.Schema) error {
	declared, ok := schema.Types[p.Column]
	if !ok {
		return fmt.Errorf("%w: %s", ErrColumnMissing, p.Column)
	}

	if _, ok := numericTypes[normalizeType(declared)]; !ok {
		return fmt.Errorf("%w: %s is %s", ErrColumnNotNumeric, p.Column, declared)
	}

	return nil
}

// IsString requires a string declared type.
type IsString struct {
	Column string
}

// Check implements Precondition.
func (p IsString) Check(schema state.Schema) error {
	declared, ok := schema.Types[p.Column]
	if !ok {
		return fmt.Errorf("%w: %s", ErrColumnMissing, p.Column)
	}

	if _, ok := stringTypes[normalizeType(declared)]; !ok {
		return fmt.Errorf("%w: %s is %s", ErrColumnNotString, p.Column, declared)
	}

	return nil
}

// AtLeastOne requires a non-empty column list.
type AtLeastOne struct {
	Columns []string
}

// Check implements Precondition.
func (p AtLeastOne) Check(_ state.Schema) error {
	if len(p.Columns) == 0 {
		return ErrNoColumns
	}

	return nil
}

// normalizeType strips length/precision suffixes such as VARCHAR(255).
func normalizeType(declared string) string {
	upper := strings.ToUpper(strings.TrimSpace(declared))
	if idx := strings.IndexByte(upper, '('); idx >= 0 {
		upper = upper[:idx]
	}

	return upper
}

func hasColumns(columns ...string) []Precondition {
	conds := make([]Precondition, 0, len(columns))
	for _, col := range columns {
		conds = append(conds, HasColumn{Column: col})
	}

	return conds
}
