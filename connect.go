package postgresql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Option configures Connect for advanced use cases.
type Option func(*connectOptions)

type connectOptions struct {
	pgxConfigModifier func(*pgxpool.Config)
	logger            *slog.Logger
}

// newPoolWithConfig is a package-private seam used by tests to force
// deterministic pool-construction failures without network dependencies.
var newPoolWithConfig = pgxpool.NewWithConfig

// WithPgxConfig allows low-level pgxpool configuration.
//
// The modifier runs after standard configuration is applied.
func WithPgxConfig(fn func(*pgxpool.Config)) Option {
	return func(o *connectOptions) {
		o.pgxConfigModifier = fn
	}
}

// WithLogger sets the logger used during connection establishment.
// slog.Default() is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(o *connectOptions) {
		o.logger = logger
	}
}

// Connect creates a connection pool for the supplied configuration.
func Connect(ctx context.Context, cfg Config, opts ...Option) (*Pool, error) {
	var o connectOptions
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	connString, err := cfg.connString()
	if err != nil {
		return nil, err
	}

	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		// SECURITY: parse errors from upstream may contain DSN content.
		// Keep the outer error message sanitized.
		return nil, errors.New("postgresql: invalid connection string (expected libpq URI or key=value form)")
	}

	if pgxCfg.ConnConfig.TLSConfig == nil {
		logger.Warn("postgresql: connecting without TLS; set sslmode=require or stricter for production use",
			"host", pgxCfg.ConnConfig.Host)
	}

	host := pgxCfg.ConnConfig.Host

	directURL, err := cfg.directURL()
	if err != nil {
		return nil, err
	}

	if cfg.MaxConns > 0 {
		pgxCfg.MaxConns = cfg.MaxConns
	} else {
		pgxCfg.MaxConns = 10
	}
	pgxCfg.MinConns = cfg.MinConns

	if cfg.HealthChecksDisabled {
		pgxCfg.HealthCheckPeriod = 0
	} else if cfg.HealthCheckPeriod > 0 {
		pgxCfg.HealthCheckPeriod = cfg.HealthCheckPeriod
	} else {
		pgxCfg.HealthCheckPeriod = 30 * time.Second
	}

	if cfg.MaxConnLifetime > 0 {
		pgxCfg.MaxConnLifetime = cfg.MaxConnLifetime
	} else {
		pgxCfg.MaxConnLifetime = 30 * time.Minute
	}

	if cfg.MaxConnIdleTime > 0 {
		pgxCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	} else {
		pgxCfg.MaxConnIdleTime = 5 * time.Minute
	}

	if cfg.ConnectTimeout > 0 {
		pgxCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	} else {
		pgxCfg.ConnConfig.ConnectTimeout = 10 * time.Second
	}

	if o.pgxConfigModifier != nil {
		o.pgxConfigModifier(pgxCfg)
	}

	logger.Debug("postgresql: opening connection pool",
		"host", host,
		"database", pgxCfg.ConnConfig.Database,
		"max_conns", pgxCfg.MaxConns)

	pool, err := newPoolWithConfig(ctx, pgxCfg)
	if err != nil {
		// SECURITY: cause may include sensitive details; keep outer error safe.
		return nil, &SafeError{
			msg:   fmt.Sprintf("postgresql: failed to create pool (host=%s)", host),
			cause: err,
		}
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &SafeError{
			msg:   fmt.Sprintf("postgresql: initial ping failed (host=%s)", host),
			cause: err,
		}
	}

	return &Pool{pool: pool, directURL: directURL}, nil
}
