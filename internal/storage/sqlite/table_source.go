// Package sqlite reads raw market records from an arbitrary SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"agrimarket/internal/domain"
	"agrimarket/internal/storage"
)

// TableSource implements storage.RecordSource over one user table.
// Every column becomes a record field; rows are ordered by rowid.
type TableSource struct {
	db      *sql.DB
	table   string
	columns []string
}

// Compile-time interface check.
var _ storage.RecordSource = (*TableSource)(nil)

// Open opens the database at path. An empty table selects the first user
// table by name.
func Open(ctx context.Context, path, table string) (*TableSource, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if table == "" {
		table, err = firstUserTable(ctx, db)
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	cols, err := tableColumns(ctx, db, table)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &TableSource{db: db, table: table, columns: cols}, nil
}

// Table returns the table being read.
func (s *TableSource) Table() string {
	return s.table
}

// Columns returns the table's column names in declaration order.
func (s *TableSource) Columns() []string {
	out := make([]string, len(s.columns))
	copy(out, s.columns)
	return out
}

// Close closes the database.
func (s *TableSource) Close() error {
	return s.db.Close()
}

// FetchSample returns the last limit rows, oldest first.
func (s *TableSource) FetchSample(ctx context.Context, limit int) ([]domain.RawRecord, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid DESC LIMIT ?",
		joinIdents(s.columns), quoteIdent(s.table))
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	var out []domain.RawRecord
	for rows.Next() {
		values := make([]any, len(s.columns))
		ptrs := make([]any, len(s.columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", s.table, err)
		}

		rec := make(domain.RawRecord, len(s.columns))
		for i, col := range s.columns {
			rec[col] = domain.ValueFromAny(normalizeValue(values[i]))
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", s.table, err)
	}

	// Newest first from the query; callers expect insertion order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func firstUserTable(ctx context.Context, db *sql.DB) (string, error) {
	const q = `SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name LIMIT 1`
	var name string
	if err := db.QueryRowContext(ctx, q).Scan(&name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("no user tables found")
		}
		return "", err
	}
	return name, nil
}

func tableColumns(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	q := fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table))
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("no columns found for table %q", table)
	}
	return cols, nil
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	default:
		return v
	}
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
