package cubepg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Option configures Connect for advanced use cases.
type Option func(*connectOptions)

type connectOptions struct {
	logger            *zap.Logger
	pgxConfigModifier func(*pgxpool.Config)
}

// newPoolWithConfig is a package-private seam used by tests to force
// deterministic pool-construction failures without network dependencies.
var newPoolWithConfig = pgxpool.NewWithConfig

// WithLogger routes query traces and lifecycle events through log.
// Without this option the package stays silent.
func WithLogger(log *zap.Logger) Option {
	return func(o *connectOptions) {
		o.logger = log
	}
}

// WithPgxConfig allows low-level pgxpool configuration.
//
// The modifier runs after standard cube-pg configuration is applied.
func WithPgxConfig(fn func(*pgxpool.Config)) Option {
	return func(o *connectOptions) {
		o.pgxConfigModifier = fn
	}
}

// Connect creates a production-hardened PostgreSQL connection pool.
//
// Pool knobs left at zero in cfg take the documented defaults. The first
// connection is verified with a ping bounded by ConnectTimeout; on failure
// the pool is torn down and an error safe for default production logging
// is returned.
func Connect(ctx context.Context, cfg Config, opts ...Option) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 20
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Second
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.MaxConnLifetime <= 0 {
		cfg.MaxConnLifetime = 30 * time.Minute
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}

	pgxCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		// SECURITY: parse errors from upstream may contain DSN content.
		// Keep the outer error message sanitized.
		return nil, errors.New("cubepg: invalid connection configuration (check Host/Port/Database/User values)")
	}

	pgxCfg.MaxConns = cfg.MaxConns
	pgxCfg.MinConns = cfg.MinConns
	pgxCfg.MaxConnIdleTime = cfg.IdleTimeout
	pgxCfg.MaxConnLifetime = cfg.MaxConnLifetime
	pgxCfg.HealthCheckPeriod = 30 * time.Second
	pgxCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	var o connectOptions
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&o)
	}
	if o.logger != nil {
		pgxCfg.ConnConfig.Tracer = &queryTracer{
			log:  o.logger,
			slow: cfg.SlowQueryThreshold,
		}
	}
	if o.pgxConfigModifier != nil {
		o.pgxConfigModifier(pgxCfg)
	}

	pool, err := newPoolWithConfig(ctx, pgxCfg)
	if err != nil {
		// SECURITY: cause may include sensitive details; keep outer error safe.
		return nil, &Error{
			Kind:    KindConnectionError,
			Code:    CodeUnknown,
			Message: fmt.Sprintf("failed to create pool (host=%s)", cfg.Host),
			cause:   err,
		}
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancelPing()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, &Error{
			Kind:    KindConnectionError,
			Code:    CodeUnknown,
			Message: fmt.Sprintf("initial ping failed (host=%s, is the database reachable?)", cfg.Host),
			cause:   err,
		}
	}

	if o.logger != nil {
		o.logger.Info("database pool established",
			zap.String("host", cfg.Host),
			zap.Int("port", cfg.Port),
			zap.String("database", cfg.Database),
			zap.Int32("max_conns", cfg.MaxConns),
		)
	}

	return &Pool{
		pool:           pool,
		log:            o.logger,
		acquireTimeout: cfg.ConnectTimeout,
	}, nil
}
