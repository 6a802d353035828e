package backend

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/veridata/veridata/internal/observability"
	"github.com/veridata/veridata/internal/state"
)

// driverName registers a SQLite driver variant carrying the SQL functions
// pattern-match analyzers rely on.
const driverName = "sqlite3_veridata"

// registerDriver makes the veridata driver registration idempotent;
// database/sql panics on duplicate names.
var registerDriver sync.Once

// regexpCache memoizes compiled patterns across rows of one scan.
var regexpCache sync.Map

// regexpMatches reports whether the whole value matches the pattern. NULL
// values arrive as empty strings through the driver and simply fail to
// match; completeness is a separate analyzer's concern.
func regexpMatches(value, pattern string) (bool, error) {
	compiled, ok := regexpCache.Load(pattern)
	if !ok {
		re, err := regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			return false, fmt.Errorf("compile pattern %q: %w", pattern, err)
		}

		compiled, _ = regexpCache.LoadOrStore(pattern, re)
	}

	return compiled.(*regexp.Regexp).MatchString(value), nil
}

func ensureDriver() {
	registerDriver.Do(func() {
		sql.Register(driverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return conn.RegisterFunc("regexp_matches", regexpMatches, true)
			},
		})
	})
}

// SQLite is the embedded analytical backend.
type SQLite struct {
	db       *gorm.DB
	recorder *observability.Recorder
}

// Option configures a SQLite backend.
type Option func(*SQLite)

// WithRecorder attaches Prometheus instrumentation to query execution.
func WithRecorder(recorder *observability.Recorder) Option {
	return func(s *SQLite) {
		s.recorder = recorder
	}
}

// Open opens (or creates) a SQLite database at the given DSN.
// Use InMemory for a private throwaway database.
func Open(dsn string, opts ...Option) (*SQLite, error) {
	ensureDriver()

	db, err := gorm.Open(sqlite.Dialector{DriverName: driverName, DSN: dsn}, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite backend: %w", err)
	}

	s := &SQLite{db: db}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// InMemory opens a private in-memory database, the default target for CSV
// verification runs. Each call gets its own database; the shared cache only
// spans the connections of one pool.
func InMemory(opts ...Option) (*SQLite, error) {
	return Open("file:"+uuid.NewString()+"?mode=memory&cache=shared", opts...)
}

// DB exposes the underlying GORM handle for loaders and the metadata
// repository, which share the database with the verification engine.
func (s *SQLite) DB() *gorm.DB {
	return s.db
}

// Schema implements Backend using SQLite table introspection.
func (s *SQLite) Schema(ctx context.Context, table string) (state.Schema, error) {
	var info []struct {
		Name string
		Type string
	}

	err := s.db.WithContext(ctx).
		Raw("SELECT name, type FROM pragma_table_info(?)", table).
		Scan(&info).Error
	if err != nil {
		return state.Schema{}, fmt.Errorf("introspect %s: %w", table, err)
	}

	if len(info) == 0 {
		return state.Schema{}, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}

	schema := state.Schema{
		Columns: make([]string, 0, len(info)),
		Types:   make(map[string]string, len(info)),
	}

	for _, col := range info {
		schema.Columns = append(schema.Columns, col.Name)
		schema.Types[col.Name] = col.Type
	}

	return schema, nil
}

// Query implements Backend.
func (s *SQLite) Query(ctx context.Context, query string) ([]map[string]any, error) {
	started := time.Now()

	var rows []map[string]any

	err := s.db.WithContext(ctx).Raw(query).Scan(&rows).Error
	s.recorder.ObserveQuery(err, time.Since(started))

	if err != nil {
		return nil, fmt.Errorf("execute aggregation query: %w", err)
	}

	return rows, nil
}

// Exec runs a statement without results, used by dataset loaders.
func (s *SQLite) Exec(ctx context.Context, statement string, args ...any) error {
	return s.db.WithContext(ctx).Exec(statement, args...).Error
}
