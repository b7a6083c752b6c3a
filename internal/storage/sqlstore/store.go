// Package sqlstore implements the account and subscription repositories on
// database/sql, backed by PostgreSQL (pgx) or SQLite (modernc).
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DBTX is the subset of database/sql used by the repositories.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Dialect selects driver, placeholder style and migration dialect.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

func ParseDialect(name string) (Dialect, error) {
	switch Dialect(name) {
	case DialectPostgres, DialectSQLite:
		return Dialect(name), nil
	default:
		return "", fmt.Errorf("unsupported sql dialect %q", name)
	}
}

func (d Dialect) driverName() string {
	if d == DialectSQLite {
		return "sqlite"
	}
	return "pgx"
}

func (d Dialect) gooseDialect() string {
	if d == DialectSQLite {
		return "sqlite3"
	}
	return "postgres"
}

var numberedParam = regexp.MustCompile(`\$(\d+)`)

// rebind rewrites $N placeholders into SQLite's ?N form.
func (d Dialect) rebind(query string) string {
	if d != DialectSQLite {
		return query
	}
	return numberedParam.ReplaceAllString(query, "?$1")
}

// Store owns the database handle and hands out repositories bound to it.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects, pings and migrates the database.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", dialect, err)
	}

	if dialect == DialectSQLite {
		// One connection: SQLite serializes writers anyway, and :memory:
		// databases are per connection.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s db: %w", dialect, err)
	}

	if err := Migrate(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, dialect: dialect}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the raw handle, e.g. for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Users() *UserRepo {
	return NewUserRepo(s.db, s.dialect)
}

func (s *Store) Subscriptions() *SubscriptionRepo {
	return NewSubscriptionRepo(s.db, s.dialect)
}

// isUniqueViolation recognizes unique constraint failures from both drivers.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
