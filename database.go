package postgresql

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultRollbackTimeout = 5 * time.Second

type txContextKey struct{}
type connContextKey struct{}

func txFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txContextKey{}).(pgx.Tx)
	return tx
}

func connFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(connContextKey{}).(*pgxpool.Conn)
	return conn
}

// Database manages access to a PostgreSQL database: context-scoped
// connections and transactions, and statement execution with codec-decoded
// results.
type Database struct {
	db     DB
	pool   *Pool
	logger *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*Database)

// WithDatabaseLogger sets the logger used for connection and transaction
// lifecycle events. slog.Default() is used otherwise.
func WithDatabaseLogger(logger *slog.Logger) DatabaseOption {
	return func(d *Database) {
		d.logger = logger
	}
}

// NewDatabase wraps an existing DB. When db is a *Pool, Connection can pin
// dedicated connections; other DB implementations manage connections
// themselves.
func NewDatabase(db DB, opts ...DatabaseOption) *Database {
	d := &Database{db: db}
	if p, ok := db.(*Pool); ok {
		d.pool = p
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Open connects a pool for the configuration and wraps it in a Database.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Database, error) {
	pool, err := Connect(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return NewDatabase(pool), nil
}

// DB returns the underlying database handle.
func (d *Database) DB() DB {
	return d.db
}

// Ping verifies connectivity.
func (d *Database) Ping(ctx context.Context) error {
	return d.db.Ping(ctx)
}

// Close releases the underlying pool.
func (d *Database) Close() {
	d.db.Close()
}

// Connection runs fn with a dedicated connection pinned into the context,
// so session-level state (advisory locks, temp tables) survives across
// statements. It is a no-op when a connection or transaction is already
// established, or when the Database is not pool-backed.
func (d *Database) Connection(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil || connFromContext(ctx) != nil {
		return fn(ctx)
	}
	if d.pool == nil {
		return fn(ctx)
	}

	d.logger.DebugContext(ctx, "postgresql: acquire connection")
	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return &SafeError{msg: "postgresql: failed to acquire connection", cause: err}
	}
	defer func() {
		d.logger.DebugContext(ctx, "postgresql: release connection")
		conn.Release()
	}()

	return fn(context.WithValue(ctx, connContextKey{}, conn))
}

// Transaction runs fn within a transaction. If fn returns an error or
// panics, the transaction is rolled back; otherwise it is committed. When
// the context already carries a transaction, a savepoint is used, so an
// inner rollback preserves outer work.
func (d *Database) Transaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	txid := uuid.New().String()

	var tx pgx.Tx
	switch {
	case txFromContext(ctx) != nil:
		// pgx issues a savepoint for nested begins.
		tx, err = txFromContext(ctx).Begin(ctx)
	case connFromContext(ctx) != nil:
		tx, err = connFromContext(ctx).Begin(ctx)
	default:
		tx, err = d.db.Begin(ctx)
	}
	if err != nil {
		return &SafeError{msg: "postgresql: begin transaction failed", cause: err}
	}
	d.logger.DebugContext(ctx, "postgresql: transaction begin", "txid", txid)

	rollbackCtx, cancelRollback := context.WithTimeout(context.Background(), defaultRollbackTimeout)
	defer cancelRollback()

	defer func() {
		if p := recover(); p != nil {
			d.logger.DebugContext(ctx, "postgresql: transaction rollback", "txid", txid)
			_ = tx.Rollback(rollbackCtx)
			panic(p)
		}
		if err != nil {
			d.logger.DebugContext(ctx, "postgresql: transaction rollback", "txid", txid)
			_ = tx.Rollback(rollbackCtx)
		}
	}()

	err = fn(context.WithValue(ctx, txContextKey{}, tx))
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return &SafeError{msg: "postgresql: commit transaction failed", cause: err}
	}
	d.logger.DebugContext(ctx, "postgresql: transaction commit", "txid", txid)

	return nil
}

// Execute renders and runs a statement in the transaction carried by ctx.
// Statements without a result prototype return (nil, nil) on success;
// statements with one return a Rows cursor the caller must close.
func (d *Database) Execute(ctx context.Context, stmt *Statement) (*Rows, error) {
	tx := txFromContext(ctx)
	if tx == nil {
		return nil, ErrNoTransaction
	}

	text, args, err := stmt.Render()
	if err != nil {
		return nil, err
	}
	d.logger.DebugContext(ctx, "postgresql: execute", "sql", text, "args", len(args))

	if stmt.Result() == nil {
		if _, err := tx.Exec(ctx, text, args...); err != nil {
			return nil, MapError(err)
		}
		return nil, nil
	}

	rows, err := tx.Query(ctx, text, args...)
	if err != nil {
		return nil, MapError(err)
	}
	return newRows(rows, stmt.Result())
}

// Exec runs a raw command in the transaction carried by ctx.
func (d *Database) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	tx := txFromContext(ctx)
	if tx == nil {
		return pgconn.CommandTag{}, ErrNoTransaction
	}
	tag, err := tx.Exec(ctx, sql, args...)
	return tag, MapError(err)
}

// Query runs a raw query in the transaction carried by ctx.
func (d *Database) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	tx := txFromContext(ctx)
	if tx == nil {
		return nil, ErrNoTransaction
	}
	rows, err := tx.Query(ctx, sql, args...)
	return rows, MapError(err)
}

// QueryRow runs a raw single-row query in the transaction carried by ctx.
// Outside a transaction it returns a row whose Scan reports ErrNoTransaction.
func (d *Database) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	tx := txFromContext(ctx)
	if tx == nil {
		return &ErrRow{Err: ErrNoTransaction}
	}
	return tx.QueryRow(ctx, sql, args...)
}
