package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Config struct {
	// DSN selects the backend: postgres:// or postgresql:// URLs use Postgres, anything else is
	// a SQLite path, file: URI or ":memory:".
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// Ledger is an open run ledger.
type Ledger struct {
	Documents DocumentRepository
	Jobs      ExtractJobRepository

	drv    *entsql.Driver
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// IsPostgres reports whether dsn addresses a Postgres server.
func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Open connects to the ledger database and creates its tables when missing.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 3 * time.Second
	}

	var (
		drv  *entsql.Driver
		pool *pgxpool.Pool
		err  error
	)
	if IsPostgres(cfg.DSN) {
		logger.Info("connecting to ledger", "backend", dialect.Postgres)
		pool, err = openPool(ctx, cfg)
		if err != nil {
			logger.Error("failed to connect to ledger", "error", err)
			return nil, err
		}
		// Wrap pool as *sql.DB for ent's driver
		drv = entsql.OpenDB(dialect.Postgres, stdlib.OpenDBFromPool(pool))
	} else {
		logger.Info("connecting to ledger", "backend", dialect.SQLite, "dsn", cfg.DSN)
		db, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			logger.Error("failed to connect to ledger", "error", err)
			return nil, err
		}
		// one writer; also keeps a ":memory:" database alive across calls
		db.SetMaxOpenConns(1)
		drv = entsql.OpenDB(dialect.SQLite, db)
	}

	l := &Ledger{drv: drv, pool: pool, logger: logger}
	if err := l.migrate(ctx); err != nil {
		l.Close()
		return nil, err
	}
	l.Documents = &documentRepo{drv: drv, log: logger}
	l.Jobs = &extractJobRepo{drv: drv, log: logger}
	logger.Info("ledger ready", "backend", drv.Dialect())
	return l, nil
}

func openPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "invoice-extractor"

	ctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	return pgxpool.NewWithConfig(ctx, pc)
}

// Dialect is the SQL dialect of the open database.
func (l *Ledger) Dialect() string { return l.drv.Dialect() }

// Close closes the database connections gracefully
func (l *Ledger) Close() {
	if l == nil {
		return
	}
	if err := l.drv.Close(); err != nil {
		l.logger.Error("failed to close ledger", "error", err)
	}
	if l.pool != nil {
		l.pool.Close()
	}
	l.logger.Debug("ledger closed")
}

// HealthCheck pings the database.
func (l *Ledger) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	l.logger.Debug("pinging ledger")
	if err := l.drv.DB().PingContext(ctx); err != nil {
		return fmt.Errorf("ping ledger: %w", err)
	}
	return nil
}

// Times are stored as Unix milliseconds so both backends read them back the same way.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id VARCHAR(36) PRIMARY KEY,
		source_path TEXT NOT NULL,
		content_hash VARCHAR(64) NOT NULL UNIQUE,
		vendor TEXT NOT NULL DEFAULT '',
		file_size BIGINT NOT NULL DEFAULT 0,
		first_seen_at BIGINT NOT NULL,
		last_seen_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS extract_jobs (
		id VARCHAR(36) PRIMARY KEY,
		document_id VARCHAR(36) NOT NULL REFERENCES documents(id),
		run_id TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at BIGINT NOT NULL,
		finished_at BIGINT,
		error_message TEXT NOT NULL DEFAULT '',
		text_bytes BIGINT NOT NULL DEFAULT 0,
		confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		fields_total INTEGER NOT NULL DEFAULT 0,
		fields_missing INTEGER NOT NULL DEFAULT 0,
		shape_error TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS extract_jobs_run_id ON extract_jobs (run_id)`,
}

func (l *Ledger) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if err := l.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("migrate ledger: %w", err)
		}
	}
	return nil
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
