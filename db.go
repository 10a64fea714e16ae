package cubepg

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the narrow query surface shared by the pool, a leased
// connection, and an open transaction. The executor helpers (Execute,
// QueryOne, QueryAll, HealthCheck) and Builder.Execute accept a Querier,
// so the same call sites work inside and outside transactions.
//
// Querier intentionally has no Begin: code handed a Querier by WithTx
// cannot open a nested transaction.
type Querier interface {
	// Exec executes a query that does not return rows.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)

	// Query executes a query that returns rows, typically a SELECT.
	// The caller must close the returned Rows when done (use defer rows.Close()).
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)

	// QueryRow executes a query expected to return at most one row.
	// If no rows match, row.Scan() returns pgx.ErrNoRows.
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ Querier = pgx.Tx(nil)
	_ Querier = (*pgxpool.Conn)(nil)
)

// DB defines the contract for database access in CUBE admin services.
//
// All methods require context.Context. This ensures cancellation propagates
// from request handlers and background jobs to in-flight database
// operations: when a request is aborted, its context is canceled and pgx
// will abort the active query/connection attempt when possible.
//
// Use this interface in service-layer constructors. Prefer depending on DB
// rather than *Pool so application code remains testable (via TestDB) and
// decoupled from pool operational concerns.
//
// Operational/pool management methods (Stats, Acquire, config knobs) are
// intentionally not part of this contract; they belong on the concrete Pool
// type. Close is included to support graceful shutdown through the
// interface.
//
// The raw Querier methods surface pgx-level types and errors; the executor
// and transaction helpers layered on top normalize every failure to *Error.
type DB interface {
	Querier

	// Begin starts a transaction with default options.
	// The caller must call tx.Commit() or tx.Rollback().
	// Prefer WithTx for rollback-on-error semantics.
	Begin(ctx context.Context) (pgx.Tx, error)

	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	// Close releases all pool resources. Call once during graceful shutdown.
	Close()
}
