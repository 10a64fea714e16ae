package cubepg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const maxTracedQueryLen = 200

type traceQueryKey struct{}

type traceQueryData struct {
	start time.Time
	sql   string
}

// queryTracer implements pgx.QueryTracer, reporting per-query timing to a
// zap logger. Connect installs it when WithLogger is supplied.
//
// SECURITY: the traced statement text is logged (truncated); parameter
// values never are.
type queryTracer struct {
	log  *zap.Logger
	slow time.Duration
}

var _ pgx.QueryTracer = (*queryTracer)(nil)

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, traceQueryKey{}, traceQueryData{
		start: time.Now(),
		sql:   data.SQL,
	})
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	qd, ok := ctx.Value(traceQueryKey{}).(traceQueryData)
	if !ok {
		return
	}

	elapsed := time.Since(qd.start)
	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.String("query", truncateQuery(qd.sql, maxTracedQueryLen)),
		zap.Int64("rows", data.CommandTag.RowsAffected()),
	}

	switch {
	case data.Err != nil:
		t.log.Error("query failed", append(fields, zap.Error(data.Err))...)
	case t.slow > 0 && elapsed >= t.slow:
		t.log.Warn("slow query", fields...)
	default:
		t.log.Debug("query completed", fields...)
	}
}

// truncateQuery keeps log lines bounded for large statements.
func truncateQuery(query string, limit int) string {
	if len(query) <= limit {
		return query
	}
	return query[:limit] + "..."
}
