package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for goose
	"github.com/pressly/goose/v3"
)

// MigrateCommand selects the goose operation Migrate performs.
type MigrateCommand string

const (
	MigrateUp      MigrateCommand = "up"
	MigrateDown    MigrateCommand = "down"
	MigrateReset   MigrateCommand = "reset"
	MigrateStatus  MigrateCommand = "status"
	MigrateVersion MigrateCommand = "version"
)

// Migrate runs schema migrations from dir against the direct (non-pooled)
// URL of the configuration. Migrations are session-level operations and must
// not run through a transaction pooler.
func Migrate(ctx context.Context, cfg Config, command MigrateCommand, dir string) error {
	switch command {
	case MigrateUp, MigrateDown, MigrateReset, MigrateStatus, MigrateVersion:
	default:
		return fmt.Errorf("postgresql: unknown migration command %q", command)
	}

	url, err := cfg.directURL()
	if err != nil {
		return err
	}

	logger := slog.Default().With("component", "migrations", "command", string(command))
	goose.SetLogger(&slogGooseLogger{logger: logger})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("postgresql: setting migration dialect: %w", err)
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		return &SafeError{msg: "postgresql: failed to open migration connection", cause: err}
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.Error("closing migration connection", "error", cerr)
		}
	}()

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return &SafeError{msg: "postgresql: migration ping failed", cause: err}
	}

	start := time.Now()
	switch command {
	case MigrateUp:
		err = goose.UpContext(ctx, db, dir)
	case MigrateDown:
		err = goose.DownContext(ctx, db, dir)
	case MigrateReset:
		err = goose.ResetContext(ctx, db, dir)
	case MigrateStatus:
		err = goose.StatusContext(ctx, db, dir)
	case MigrateVersion:
		err = goose.VersionContext(ctx, db, dir)
	}
	if err != nil {
		return &SafeError{msg: fmt.Sprintf("postgresql: migration %s failed", command), cause: err}
	}

	logger.Info("migration complete", "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// slogGooseLogger bridges goose's logger to slog.
type slogGooseLogger struct {
	logger *slog.Logger
}

func (l *slogGooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

func (l *slogGooseLogger) Printf(format string, v ...any) {
	l.logger.Info(fmt.Sprintf(format, v...))
}
