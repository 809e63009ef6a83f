// Package store writes datasets to relational tables and reads them back.
// sqlite (modernc.org/sqlite) and postgres (lib/pq) are supported.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"movora/internal/table"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	ErrUnsupportedDriver = errors.New("unsupported store driver")
	ErrTableNotFound     = errors.New("table not found")
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Column describes one column of a stored table.
type Column struct {
	Name string
	Type string
}

// Store is a handle on one database.
type Store struct {
	db     *sqlx.DB
	driver string
}

// Open connects to dsn with driver. For sqlite file paths the parent
// directory is created.
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite:
		if dir := sqliteDir(dsn); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	return &Store{db: db, driver: driver}, nil
}

// Close closes the underlying pool.
func (s *Store) Close() error { return s.db.Close() }

// Driver returns the driver name the store was opened with.
func (s *Store) Driver() string { return s.driver }

// ReplaceTable drops name if it exists, recreates it from ds's schema and
// inserts every row. Numeric columns are REAL, everything else TEXT, and
// Missing cells are NULL.
func (s *Store) ReplaceTable(ctx context.Context, name string, ds *table.Dataset) error {
	if len(ds.Columns) == 0 {
		return fmt.Errorf("table %q: dataset has no columns", name)
	}
	defs := make([]string, len(ds.Columns))
	for i, c := range ds.Columns {
		defs[i] = quoteIdent(c) + " " + s.columnType(ds, c)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+quoteIdent(name)); err != nil {
		return fmt.Errorf("drop %q: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `CREATE TABLE `+quoteIdent(name)+` (`+strings.Join(defs, ", ")+`)`); err != nil {
		return fmt.Errorf("create %q: %w", name, err)
	}

	ph := strings.TrimRight(strings.Repeat("?,", len(ds.Columns)), ",")
	q := tx.Rebind(`INSERT INTO ` + quoteIdent(name) + ` (` + joinIdents(ds.Columns) + `) VALUES (` + ph + `)`)
	stmt, err := tx.PreparexContext(ctx, q)
	if err != nil {
		return fmt.Errorf("prepare insert %q: %w", name, err)
	}
	defer stmt.Close()

	args := make([]any, len(ds.Columns))
	for _, r := range ds.Rows {
		for i, c := range ds.Columns {
			args[i] = sqlValue(r[c])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert %q: %w", name, err)
		}
	}
	return tx.Commit()
}

// LoadTable reads every row of name into a Dataset, preserving the
// table's column order.
func (s *Store) LoadTable(ctx context.Context, name string) (*table.Dataset, error) {
	ok, err := s.HasTable(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTableNotFound, name)
	}

	rows, err := s.db.QueryxContext(ctx, `SELECT * FROM `+quoteIdent(name))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	ds := table.New(name, cols)
	for rows.Next() {
		m := map[string]any{}
		if err := rows.MapScan(m); err != nil {
			return nil, err
		}
		r := make(table.Record, len(cols))
		for _, c := range cols {
			if v := fromSQL(m[c]); !v.IsMissing() {
				r[c] = v
			}
		}
		ds.Rows = append(ds.Rows, r)
	}
	return ds, rows.Err()
}

// HasTable reports whether a table called name exists.
func (s *Store) HasTable(ctx context.Context, name string) (bool, error) {
	var q string
	switch s.driver {
	case DriverPostgres:
		q = `SELECT count(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?`
	default:
		q = `SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	}
	var n int
	if err := s.db.GetContext(ctx, &n, s.db.Rebind(q), name); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Columns lists the columns of name with their declared types.
func (s *Store) Columns(ctx context.Context, name string) ([]Column, error) {
	var cols []Column
	switch s.driver {
	case DriverPostgres:
		q := s.db.Rebind(`SELECT column_name, data_type FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = ? ORDER BY ordinal_position`)
		rows, err := s.db.QueryContext(ctx, q, name)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		for rows.Next() {
			var c Column
			if err := rows.Scan(&c.Name, &c.Type); err != nil {
				return nil, err
			}
			cols = append(cols, c)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	default:
		rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(name)))
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		for rows.Next() {
			var cid, notnull, pk int
			var dflt sql.NullString
			var c Column
			if err := rows.Scan(&cid, &c.Name, &c.Type, &notnull, &dflt, &pk); err != nil {
				return nil, err
			}
			cols = append(cols, c)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrTableNotFound, name)
	}
	return cols, nil
}

func (s *Store) columnType(ds *table.Dataset, col string) string {
	if !isNumberColumn(ds, col) {
		return "TEXT"
	}
	if s.driver == DriverPostgres {
		return "DOUBLE PRECISION"
	}
	return "REAL"
}

// isNumberColumn reports whether every defined cell of col is a Number.
// A column without values is numeric, as pandas types an all-NaN column.
func isNumberColumn(ds *table.Dataset, col string) bool {
	for _, r := range ds.Rows {
		v := r[col]
		if !v.IsMissing() && !v.IsNumber() {
			return false
		}
	}
	return true
}

func sqlValue(v table.Value) any {
	switch v.Kind() {
	case table.KindNumber:
		f, _ := v.Float()
		return f
	case table.KindText:
		return v.String()
	default:
		return nil
	}
}

func fromSQL(v any) table.Value {
	switch t := v.(type) {
	case nil:
		return table.Missing
	case float64:
		return table.Number(t)
	case float32:
		return table.Number(float64(t))
	case int64:
		return table.Number(float64(t))
	case []byte:
		return table.Text(string(t))
	case string:
		return table.Text(t)
	case bool:
		return table.Text(strconv.FormatBool(t))
	case time.Time:
		return table.Text(t.Format(time.RFC3339Nano))
	default:
		return table.Text(fmt.Sprint(t))
	}
}

func sqliteDir(dsn string) string {
	if dsn == "" || dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return ""
	}
	dir := filepath.Dir(dsn)
	if dir == "." {
		return ""
	}
	return dir
}

func joinIdents(cols []string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = quoteIdent(c)
	}
	return strings.Join(parts, ", ")
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
