package pgsql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NotOneError reports that a query expected to touch exactly one row
// touched a different number.
type NotOneError struct {
	Count int
}

func (e *NotOneError) Error() string {
	return fmt.Sprintf("pgsql: exactly 1 row expected, but %d found", e.Count)
}

// DB wraps a pgx pool with the templated query helpers. All queries go
// through Expand, so call sites use named parameters and field lists.
type DB struct {
	pool *pgxpool.Pool
}

// Connect opens a pool for the given connection string.
func Connect(ctx context.Context, connString string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	return &DB{pool: pool}, nil
}

// NewFromPool wraps an existing pool.
func NewFromPool(pool *pgxpool.Pool) *DB { return &DB{pool: pool} }

// Close releases the pool.
func (db *DB) Close() { db.pool.Close() }

// Exec runs a statement and returns the number of rows affected.
func (db *DB) Exec(ctx context.Context, query string, fields []Field, named map[string]any) (int64, error) {
	sql, params, err := Expand(query, fields, named)
	if err != nil {
		return 0, err
	}
	tag, err := db.pool.Exec(ctx, sql, params...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ExecOne runs a statement that must affect exactly one row.
func (db *DB) ExecOne(ctx context.Context, query string, fields []Field, named map[string]any) error {
	n, err := db.Exec(ctx, query, fields, named)
	if err != nil {
		return err
	}
	if n != 1 {
		return &NotOneError{Count: int(n)}
	}
	return nil
}

// Value runs a query that must return exactly one row with one column.
func (db *DB) Value(ctx context.Context, query string, named map[string]any) (any, error) {
	sql, params, err := Expand(query, nil, named)
	if err != nil {
		return nil, err
	}
	rows, err := db.pool.Query(ctx, sql, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var v any
	count := 0
	for rows.Next() {
		if count == 0 {
			if err := rows.Scan(&v); err != nil {
				return nil, err
			}
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if count != 1 {
		return nil, &NotOneError{Count: count}
	}
	return v, nil
}

// ValueList runs a query and collects the first column of every row.
func (db *DB) ValueList(ctx context.Context, query string, named map[string]any) ([]any, error) {
	sql, params, err := Expand(query, nil, named)
	if err != nil {
		return nil, err
	}
	rows, err := db.pool.Query(ctx, sql, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []any
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Row runs a query that must return exactly one row, as a column-keyed map.
func (db *DB) Row(ctx context.Context, query string, named map[string]any) (map[string]any, error) {
	list, err := db.RowList(ctx, query, named)
	if err != nil {
		return nil, err
	}
	if len(list) != 1 {
		return nil, &NotOneError{Count: len(list)}
	}
	return list[0], nil
}

// RowList runs a query and collects every row as a column-keyed map.
func (db *DB) RowList(ctx context.Context, query string, named map[string]any) ([]map[string]any, error) {
	sql, params, err := Expand(query, nil, named)
	if err != nil {
		return nil, err
	}
	rows, err := db.pool.Query(ctx, sql, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return pgx.CollectRows(rows, pgx.RowToMap)
}

// Exists reports whether the query returns at least one row.
func (db *DB) Exists(ctx context.Context, query string, named map[string]any) (bool, error) {
	list, err := db.ValueList(ctx, query, named)
	if err != nil {
		return false, err
	}
	return len(list) > 0, nil
}

// Insert inserts one row built from the field list.
func (db *DB) Insert(ctx context.Context, table string, fields ...Field) error {
	if !identifierRe.MatchString(table) {
		return fmt.Errorf("pgsql: invalid table name %q", table)
	}
	q := fmt.Sprintf(`INSERT INTO %q ([Field]) VALUES ([Value])`, table)
	return db.ExecOne(ctx, q, fields, nil)
}

// Update updates the rows matching where with the field list.
func (db *DB) Update(ctx context.Context, table, where string, fields []Field, named map[string]any) (int64, error) {
	if !identifierRe.MatchString(table) {
		return 0, fmt.Errorf("pgsql: invalid table name %q", table)
	}
	q := fmt.Sprintf(`UPDATE %q SET [Field=Value] WHERE %s`, table, where)
	return db.Exec(ctx, q, fields, named)
}

// Delete deletes the rows matching where.
func (db *DB) Delete(ctx context.Context, table, where string, named map[string]any) (int64, error) {
	if !identifierRe.MatchString(table) {
		return 0, fmt.Errorf("pgsql: invalid table name %q", table)
	}
	q := fmt.Sprintf(`DELETE FROM %q WHERE %s`, table, where)
	return db.Exec(ctx, q, nil, named)
}
