package db

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/snowflakedb/gosnowflake"

	"seattle-events/internal/config"
)

func Open(cfg config.Config) (*sql.DB, error) {
	dsn, err := BuildDSN(cfg)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	if cfg.LogSQL {
		drv, err := driverFor(cfg.Driver)
		if err != nil {
			return nil, err
		}
		connector, err := NewLoggingConnector(drv, dsn, slog.Default())
		if err != nil {
			return nil, fmt.Errorf("db connector: %w", err)
		}
		db = sql.OpenDB(connector)
	} else {
		db, err = sql.Open(cfg.Driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns >= 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if InMemory(cfg) {
		// the database lives exactly as long as its single connection
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}

	// Validate connectivity early
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return db, nil
}

func Close(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

// InMemory reports whether cfg names an in-memory sqlite database.
func InMemory(cfg config.Config) bool {
	if cfg.Driver != config.DriverSQLite {
		return false
	}
	target := cfg.SQLitePath
	if cfg.DSN != "" {
		target = cfg.DSN
	}
	return target == ":memory:" || strings.Contains(target, "mode=memory")
}

func driverFor(name string) (driver.Driver, error) {
	switch name {
	case config.DriverSQLite:
		return &sqlite3.SQLiteDriver{}, nil
	case config.DriverPostgres:
		return &pq.Driver{}, nil
	case config.DriverMySQL:
		return &mysql.MySQLDriver{}, nil
	case config.DriverSnowflake:
		return &gosnowflake.SnowflakeDriver{}, nil
	default:
		return nil, fmt.Errorf("unsupported db driver %q", name)
	}
}

// BuildDSN returns cfg.DSN when set, otherwise a driver-specific DSN assembled
// from the individual connection settings.
func BuildDSN(cfg config.Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	switch cfg.Driver {
	case config.DriverSQLite:
		return sqliteDSN(cfg.SQLitePath)
	case config.DriverPostgres:
		return postgresDSN(cfg), nil
	case config.DriverMySQL:
		return mysqlDSN(cfg), nil
	case config.DriverSnowflake:
		return "", fmt.Errorf("DB_DSN is required for %s", cfg.Driver)
	default:
		return "", fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}
}

func sqliteDSN(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}

	// Ensure directory exists for file-backed sqlite db
	dir := filepath.Dir(strings.TrimPrefix(path, "file:"))
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	params := []string{
		"_foreign_keys=on",
		"_busy_timeout=5000",
		"_journal_mode=WAL",
	}

	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}
	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}

func postgresDSN(cfg config.Config) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.DBHost, strconv.Itoa(cfg.DBPort)),
		Path:   "/" + cfg.DBName,
	}
	switch {
	case cfg.DBUser != "" && cfg.DBPassword != "":
		u.User = url.UserPassword(cfg.DBUser, cfg.DBPassword)
	case cfg.DBUser != "":
		u.User = url.User(cfg.DBUser)
	}
	if cfg.DBSSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {cfg.DBSSLMode}}.Encode()
	}
	return u.String()
}

func mysqlDSN(cfg config.Config) string {
	c := mysql.NewConfig()
	c.User = cfg.DBUser
	c.Passwd = cfg.DBPassword
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.DBHost, strconv.Itoa(cfg.DBPort))
	c.DBName = cfg.DBName
	c.ParseTime = true
	// migrations are multi-statement files
	c.MultiStatements = true
	return c.FormatDSN()
}
