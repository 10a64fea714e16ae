package cubepg

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Pool is the concrete implementation of DB backed by pgxpool.
// It intentionally wraps (does not embed) *pgxpool.Pool.
type Pool struct {
	pool *pgxpool.Pool
	log  *zap.Logger

	acquireTimeout time.Duration
	waiting        atomic.Int64
	closeOnce      sync.Once
}

var _ DB = (*Pool)(nil)

// PoolStats is a point-in-time snapshot of pool occupancy.
type PoolStats struct {
	// Total open connections (idle + leased + constructing).
	Total int32 `json:"total"`

	// Idle connections ready for the next acquire.
	Idle int32 `json:"idle"`

	// Leased connections currently checked out.
	Leased int32 `json:"leased"`

	// Waiting callers currently blocked in Acquire.
	Waiting int32 `json:"waiting"`

	// Max is the configured MaxConns ceiling.
	Max int32 `json:"max"`
}

// Stats returns a snapshot of pool statistics.
func (p *Pool) Stats() PoolStats {
	st := p.pool.Stat()
	return PoolStats{
		Total:   st.TotalConns(),
		Idle:    st.IdleConns(),
		Leased:  st.AcquiredConns(),
		Waiting: int32(p.waiting.Load()),
		Max:     st.MaxConns(),
	}
}

// Acquire leases a dedicated connection. The wait is bounded by the
// configured ConnectTimeout; when it elapses with every connection leased
// the returned error has KindPoolExhausted. The caller must call
// conn.Release() when done.
func (p *Pool) Acquire(ctx context.Context) (*pgxpool.Conn, error) {
	if p.acquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.acquireTimeout)
		defer cancel()
	}

	p.waiting.Add(1)
	conn, err := p.pool.Acquire(ctx)
	p.waiting.Add(-1)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &Error{
				Kind:    KindPoolExhausted,
				Code:    CodeUnknown,
				Message: "acquire connection: timed out waiting for a pooled connection",
				cause:   err,
			}
		}
		return nil, normalizeError("acquire connection", err)
	}
	return conn, nil
}

func (p *Pool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return p.pool.Exec(ctx, sql, args...)
}

func (p *Pool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return p.pool.Query(ctx, sql, args...)
}

func (p *Pool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return p.pool.QueryRow(ctx, sql, args...)
}

func (p *Pool) Begin(ctx context.Context) (pgx.Tx, error) {
	return p.pool.Begin(ctx)
}

func (p *Pool) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close blocks new acquisitions, waits for leased connections to be
// released, and closes everything. It is safe to call more than once and
// on a nil receiver (shutdown paths that never connected).
func (p *Pool) Close() {
	if p == nil {
		return
	}
	p.closeOnce.Do(func() {
		p.pool.Close()
		if p.log != nil {
			p.log.Info("database pool closed")
		}
	})
}
