package cubepg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Row is a single result row keyed by column name.
type Row map[string]any

// Result is the uniform shape every statement execution produces.
type Result struct {
	// Rows holds the result set in backend order; empty for statements
	// returning no rows.
	Rows []Row

	// RowsAffected is the backend-reported affected or returned row count.
	RowsAffected int64
}

// Execute runs sql with args on db and collects the whole result set.
//
// The highest $n placeholder in sql must equal len(args); a mismatch is
// rejected as KindMalformedQuery before anything is sent to the backend.
// Every other failure is normalized to *Error.
func Execute(ctx context.Context, db Querier, sql string, args ...any) (*Result, error) {
	if n := placeholderCount(sql); n != len(args) {
		return nil, &Error{
			Kind:    KindMalformedQuery,
			Code:    CodeUnknown,
			Message: fmt.Sprintf("execute query: statement wants %d parameters, got %d", n, len(args)),
		}
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, normalizeError("execute query", err)
	}
	return collectResult(rows)
}

// QueryAll runs sql and returns every row. Zero matches yield an empty
// slice and no error.
func QueryAll(ctx context.Context, db Querier, sql string, args ...any) ([]Row, error) {
	res, err := Execute(ctx, db, sql, args...)
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

// QueryOne runs sql and returns the first row. Zero matches yield
// (nil, nil): absence is an ordinary outcome, not an error.
func QueryOne(ctx context.Context, db Querier, sql string, args ...any) (Row, error) {
	res, err := Execute(ctx, db, sql, args...)
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, nil
	}
	return res.Rows[0], nil
}

// collectResult drains rows into a Result. rows is always closed.
func collectResult(rows pgx.Rows) (*Result, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, fd := range fields {
		cols[i] = fd.Name
	}

	var out []Row
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, normalizeError("read row", err)
		}
		row := make(Row, len(cols))
		for i, v := range vals {
			row[cols[i]] = v
		}
		out = append(out, row)
	}

	// CommandTag is only valid once the cursor is fully drained and closed.
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, normalizeError("execute query", err)
	}

	return &Result{Rows: out, RowsAffected: rows.CommandTag().RowsAffected()}, nil
}

// placeholderCount returns the highest $n parameter index referenced in
// sql. The backend derives its parameter count the same way, so a repeated
// index counts once. Single-quoted literals and double-quoted identifiers
// are skipped; dollar-quoted bodies are not recognized.
func placeholderCount(sql string) int {
	highest := 0
	for i := 0; i < len(sql); i++ {
		switch sql[i] {
		case '\'':
			for i++; i < len(sql); i++ {
				if sql[i] == '\'' {
					if i+1 < len(sql) && sql[i+1] == '\'' {
						i++
						continue
					}
					break
				}
			}
		case '"':
			for i++; i < len(sql); i++ {
				if sql[i] == '"' {
					break
				}
			}
		case '$':
			j := i + 1
			n := 0
			for j < len(sql) && sql[j] >= '0' && sql[j] <= '9' {
				n = n*10 + int(sql[j]-'0')
				j++
			}
			if j > i+1 && n > highest {
				highest = n
			}
			i = j - 1
		}
	}
	return highest
}
