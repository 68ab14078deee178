// Package migrate applies the embedded, per-dialect schema migrations with
// golang-migrate. Files live under sql/<driver>/ and are named
// NNNN_name.up.sql / NNNN_name.down.sql.
package migrate

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"seattle-events/internal/config"
	"seattle-events/internal/db"
)

//go:embed sql
var sqlFS embed.FS

// SchemaVersion is the last migration that only creates schema. Later
// versions load sample data.
const SchemaVersion uint = 1

const tableName = "schema_migrations"

// Up applies every pending migration for cfg.Driver.
func Up(cfg config.Config) error {
	return run(cfg, func(m *migrate.Migrate) error { return m.Up() })
}

// Down reverts every applied migration.
func Down(cfg config.Config) error {
	return run(cfg, func(m *migrate.Migrate) error { return m.Down() })
}

// To migrates up or down to exactly version.
func To(cfg config.Config, version uint) error {
	return run(cfg, func(m *migrate.Migrate) error { return m.Migrate(version) })
}

// Version reports the applied version. ok is false on a fresh database.
func Version(cfg config.Config) (version uint, dirty bool, ok bool, err error) {
	err = run(cfg, func(m *migrate.Migrate) error {
		var verr error
		version, dirty, verr = m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			return nil
		}
		if verr == nil {
			ok = true
		}
		return verr
	})
	return version, dirty, ok, err
}

// ErrInMemory is returned for in-memory sqlite configs: a dedicated
// connection would migrate a private database that vanishes when it closes.
var ErrInMemory = errors.New("in-memory sqlite must be migrated on the serving connection")

// UpSQLite applies pending migrations on an open sqlite3 pool and leaves it
// open. In-memory databases are migrated this way.
func UpSQLite(conn *sql.DB) error {
	src, err := iofs.New(sqlFS, "sql/"+config.DriverSQLite)
	if err != nil {
		return fmt.Errorf("migration source %s: %w", config.DriverSQLite, err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			slog.Warn("migrate source close", "error", err)
		}
	}()
	target, err := sqlite3.WithInstance(conn, &sqlite3.Config{MigrationsTable: tableName})
	if err != nil {
		return fmt.Errorf("migration target %s: %w", config.DriverSQLite, err)
	}
	// m is not closed: that would close conn.
	m, err := migrate.NewWithInstance("iofs", src, config.DriverSQLite, target)
	if err != nil {
		return err
	}
	m.Log = logger{}
	return applied(m.Up(), config.DriverSQLite)
}

// run opens a dedicated connection because closing a golang-migrate instance
// also closes the *sql.DB it was built on.
func run(cfg config.Config, fn func(*migrate.Migrate) error) error {
	if db.InMemory(cfg) {
		return ErrInMemory
	}
	conn, err := db.Open(cfg)
	if err != nil {
		return err
	}
	m, err := newMigrate(conn, cfg.Driver)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			slog.Warn("migrate close", "sourceError", srcErr, "dbError", dbErr)
		}
	}()

	m.Log = logger{}
	return applied(fn(m), cfg.Driver)
}

func applied(err error, driver string) error {
	if errors.Is(err, migrate.ErrNoChange) {
		slog.Info("migrations up to date", "driver", driver)
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", driver, err)
	}
	slog.Info("migrations applied", "driver", driver)
	return nil
}

func newMigrate(conn *sql.DB, driver string) (*migrate.Migrate, error) {
	src, err := iofs.New(sqlFS, "sql/"+driver)
	if err != nil {
		return nil, fmt.Errorf("migration source %s: %w", driver, err)
	}

	var target database.Driver
	switch driver {
	case config.DriverSQLite:
		target, err = sqlite3.WithInstance(conn, &sqlite3.Config{MigrationsTable: tableName})
	case config.DriverPostgres:
		target, err = postgres.WithInstance(conn, &postgres.Config{MigrationsTable: tableName})
	case config.DriverMySQL:
		target, err = mysql.WithInstance(conn, &mysql.Config{MigrationsTable: tableName})
	default:
		err = fmt.Errorf("migrations are not supported for driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("migration target %s: %w", driver, err)
	}

	return migrate.NewWithInstance("iofs", src, driver, target)
}

// logger adapts golang-migrate's Logger to slog.
type logger struct{}

func (logger) Printf(format string, v ...any) {
	slog.Debug("migrate", "detail", fmt.Sprintf(format, v...))
}

func (logger) Verbose() bool { return false }
