package sqlite

import (
	"context"
	"database/sql"
	"strings"
)

// placeholder returns a placeholder for SQLite (uses ?)
func placeholder(int) string {
	return "?"
}

// placeholders returns n placeholders for SQLite
func placeholders(n int) string {
	list := []string{}
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}

// inList appends one placeholder per value and returns "(?, ?, ...)".
func inList[T any](args []any, values []T) (string, []any) {
	list := make([]string, 0, len(values))
	for _, v := range values {
		args = append(args, v)
		list = append(list, placeholder(len(args)))
	}
	return "(" + strings.Join(list, ", ") + ")", args
}

// columns joins fields, qualifying each with table when set.
func columns(table string, fields []string) string {
	if table == "" {
		return strings.Join(fields, ", ")
	}
	list := make([]string, 0, len(fields))
	for _, field := range fields {
		list = append(list, table+"."+field)
	}
	return strings.Join(list, ", ")
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func nullInt64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func int64PtrArg(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
