package cubepg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestQueryTracer_LogsCompletionWithoutParameterValues(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	tr := &queryTracer{log: zap.New(core), slow: time.Hour}

	ctx := tr.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{
		SQL:  "SELECT id FROM widgets WHERE secret = $1",
		Args: []any{"secret-value"},
	})
	tr.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{
		CommandTag: pgconn.NewCommandTag("SELECT 1"),
	})

	entries := logs.FilterMessage("query completed").All()
	if len(entries) != 1 {
		t.Fatalf("completion logged %d times, want 1", len(entries))
	}

	fields := entries[0].ContextMap()
	if fields["query"] != "SELECT id FROM widgets WHERE secret = $1" {
		t.Fatalf("query field=%v", fields["query"])
	}
	if fields["rows"] != int64(1) {
		t.Fatalf("rows field=%v, want 1", fields["rows"])
	}
	if _, ok := fields["elapsed"]; !ok {
		t.Fatal("elapsed field missing")
	}
	for key, val := range fields {
		if strings.Contains(fmt.Sprint(val), "secret-value") {
			t.Fatalf("parameter value leaked into log field %q: %v", key, val)
		}
	}
}

func TestQueryTracer_FlagsSlowQueries(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	tr := &queryTracer{log: zap.New(core), slow: time.Nanosecond}

	ctx := tr.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT pg_sleep(1)"})
	time.Sleep(time.Millisecond)
	tr.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{
		CommandTag: pgconn.NewCommandTag("SELECT 1"),
	})

	if n := logs.FilterMessage("slow query").Len(); n != 1 {
		t.Fatalf("slow query logged %d times, want 1", n)
	}
	if n := logs.FilterMessage("query completed").Len(); n != 0 {
		t.Fatalf("completion logged %d times for a slow query, want 0", n)
	}
}

func TestQueryTracer_LogsFailures(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	tr := &queryTracer{log: zap.New(core), slow: time.Hour}

	ctx := tr.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT nope"})
	tr.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{
		Err: errors.New("backend exploded"),
	})

	entries := logs.FilterMessage("query failed").All()
	if len(entries) != 1 {
		t.Fatalf("failure logged %d times, want 1", len(entries))
	}
	if entries[0].Level != zapcore.ErrorLevel {
		t.Fatalf("level=%v, want error", entries[0].Level)
	}
	if entries[0].ContextMap()["error"] != "backend exploded" {
		t.Fatalf("error field=%v", entries[0].ContextMap()["error"])
	}
}

func TestQueryTracer_TruncatesLongStatements(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	tr := &queryTracer{log: zap.New(core)}

	long := "SELECT " + strings.Repeat("x", 300)
	ctx := tr.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: long})
	tr.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{
		CommandTag: pgconn.NewCommandTag("SELECT 0"),
	})

	entries := logs.FilterMessage("query completed").All()
	if len(entries) != 1 {
		t.Fatalf("completion logged %d times, want 1", len(entries))
	}
	logged, ok := entries[0].ContextMap()["query"].(string)
	if !ok {
		t.Fatalf("query field=%v, want string", entries[0].ContextMap()["query"])
	}
	if len(logged) != maxTracedQueryLen+len("...") {
		t.Fatalf("logged query len=%d, want %d", len(logged), maxTracedQueryLen+len("..."))
	}
	if !strings.HasPrefix(logged, "SELECT ") || !strings.HasSuffix(logged, "...") {
		t.Fatalf("logged query=%q not a truncation of the statement", logged)
	}
}

func TestQueryTracer_IgnoresEndWithoutStart(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	tr := &queryTracer{log: zap.New(core)}

	tr.TraceQueryEnd(context.Background(), nil, pgx.TraceQueryEndData{
		CommandTag: pgconn.NewCommandTag("SELECT 0"),
	})

	if n := logs.Len(); n != 0 {
		t.Fatalf("logged %d entries without a start record, want 0", n)
	}
}

func TestTruncateQuery_Boundary(t *testing.T) {
	t.Parallel()

	if got := truncateQuery("abc", 3); got != "abc" {
		t.Fatalf("truncateQuery=%q, want unchanged at the limit", got)
	}
	if got := truncateQuery("abcd", 3); got != "abc..." {
		t.Fatalf("truncateQuery=%q, want %q", got, "abc...")
	}
}
