// Package sqlstore implements the repository interfaces on database/sql.
//
// One code path serves two backends: SQLite through the pure Go
// modernc.org/sqlite driver (the default, no C compiler needed) and
// PostgreSQL through pgx's database/sql adapter. Queries are written once with
// "?" placeholders and rebound for Postgres; time values are converted to the
// representation each backend compares correctly.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers "sqlite"

	"github.com/sakif/flashdeck/internal/dbx"
	"github.com/sakif/flashdeck/internal/repository"
	"github.com/sakif/flashdeck/migrations"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options selects the backend. For SQLite, DSN is a file path or ":memory:".
type Options struct {
	Driver string
	DSN    string
}

// Store is the root repository handle.
//
// For SQLite the pool is capped at one connection: an in-memory database only
// exists on the connection that created it, and a single writer is all SQLite
// supports anyway. Callers must therefore never touch the Store's own
// repositories from inside WithTx.
type Store struct {
	conn
	sqlDB  *sql.DB
	logger *slog.Logger
}

// compile-time check that *Store implements repository.Store
var _ repository.Store = (*Store)(nil)

// Open connects to the database described by opts and verifies the
// connection. It does not run migrations; see Migrate.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (*Store, error) {
	var (
		sqlDB *sql.DB
		d     dialect
		err   error
	)

	switch opts.Driver {
	case DriverSQLite, "":
		d = sqliteDialect
		sqlDB, err = openSQLite(ctx, opts.DSN)
	case DriverPostgres:
		d = postgresDialect
		sqlDB, err = openPostgres(ctx, opts.DSN)
	default:
		return nil, fmt.Errorf("sqlstore: unknown driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("database opened", slog.String("driver", d.name))

	return &Store{
		conn:   conn{db: sqlDB, d: d},
		sqlDB:  sqlDB,
		logger: logger,
	}, nil
}

func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlstore: sqlite path is required")
	}
	if err := registerFold(); err != nil {
		return nil, fmt.Errorf("sqlstore: registering %s: %w", foldFunc, err)
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("sqlstore: creating database directory: %w", err)
			}
		}
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	sqlDB, err := sql.Open("sqlite", path+sep+"_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("sqlstore: opening sqlite: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: pinging sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.ExecContext(ctx, pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("sqlstore: execute %s: %w", pragma, err)
		}
	}

	return sqlDB, nil
}

func openPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlstore: postgres dsn is required")
	}
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: opening postgres: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: pinging postgres: %w", err)
	}
	return sqlDB, nil
}

// Migrate applies every pending goose migration for the store's dialect.
func (s *Store) Migrate(ctx context.Context) error {
	fsys, err := migrations.For(s.d.name)
	if err != nil {
		return err
	}

	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(fsys)
	if err := goose.SetDialect(s.d.gooseDialect); err != nil {
		return fmt.Errorf("sqlstore: set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, s.sqlDB, "."); err != nil {
		return fmt.Errorf("sqlstore: run migrations: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, s.sqlDB)
	if err != nil {
		return fmt.Errorf("sqlstore: reading schema version: %w", err)
	}
	s.logger.Info("migrations applied", slog.Int64("version", version))
	return nil
}

// WithTx runs fn inside one transaction. fn's error (or panic) rolls back
// every write made through tx.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	return dbx.WithTx(ctx, s.sqlDB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(conn{db: tx, d: s.d})
	})
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.sqlDB.Close()
}

// conn binds repositories to one handle, either the pool or a transaction.
type conn struct {
	db dbx.DBTX
	d  dialect
}

func (c conn) Users() repository.UserRepository { return &userRepo{c} }
func (c conn) Decks() repository.DeckRepository { return &deckRepo{c} }
func (c conn) Cards() repository.CardRepository { return &cardRepo{c} }

func (c conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.db.ExecContext(ctx, c.d.rebind(query), args...)
}

func (c conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, c.d.rebind(query), args...)
}

func (c conn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.db.QueryRowContext(ctx, c.d.rebind(query), args...)
}

// count runs a SELECT COUNT(*) style query.
func (c conn) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := c.queryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
