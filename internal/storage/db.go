package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/claude/lightweight/internal/models"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// sqlDriverNames maps a configured driver to its database/sql registration.
var sqlDriverNames = map[string]string{
	DriverSQLite:   "sqlite",
	DriverPostgres: "pgx",
}

//go:embed migrations
var migrationFS embed.FS

var (
	// ErrNotFound is returned when an exercise or set does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateName is returned when another exercise already has the name.
	ErrDuplicateName = errors.New("exercise already exists")
	// ErrEmptyName is returned for a blank exercise name.
	ErrEmptyName = errors.New("exercise needs a name")
	// ErrInvalidSet is returned when set values are out of range.
	ErrInvalidSet = errors.New("invalid set")
)

// Publisher receives a Change after every committed write.
type Publisher interface {
	Publish(models.Change)
}

// DB wraps a database/sql handle and provides repository methods.
type DB struct {
	SQL    *sql.DB
	driver string
	pub    Publisher
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New opens a database with the given driver ("sqlite" or "postgres") and DSN.
func New(ctx context.Context, driver, dsn string) (*DB, error) {
	name, ok := sqlDriverNames[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if driver == DriverSQLite {
		// SQLite handles one writer at a time
		conn.SetMaxOpenConns(1)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{SQL: conn, driver: driver}, nil
}

// isUniqueViolation reports whether err is a unique constraint failure from
// either driver.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE"))
	}
	return false
}

// Close closes the underlying database handle.
func (db *DB) Close() error {
	return db.SQL.Close()
}

// SetPublisher registers the receiver of change notifications.
func (db *DB) SetPublisher(p Publisher) {
	db.pub = p
}

// RunMigrations applies all pending embedded migrations for the driver.
// databaseURL uses golang-migrate syntax, e.g. sqlite:///var/lib/lightweight.db.
func RunMigrations(driver, databaseURL string) error {
	if _, ok := sqlDriverNames[driver]; !ok {
		return fmt.Errorf("unsupported database driver %q", driver)
	}

	src, err := iofs.New(migrationFS, "migrations/"+driver)
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (db *DB) publish(entity, op, id, exerciseID string) {
	if db.pub == nil {
		return
	}
	db.pub.Publish(models.Change{
		Entity:     entity,
		Op:         op,
		ID:         id,
		ExerciseID: exerciseID,
		At:         time.Now().UTC(),
	})
}
