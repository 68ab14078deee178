package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	DriverSQLite    = "sqlite3"
	DriverPostgres  = "postgres"
	DriverMySQL     = "mysql"
	DriverSnowflake = "snowflake"
)

const (
	IngestNone   = "none"
	IngestMQTT   = "mqtt"
	IngestPubSub = "pubsub"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// StaticDir is the absolute path to the directory served at /static/.
	// Set via STATIC_DIR (relative paths are resolved against the process working directory at startup).
	StaticDir string

	Driver string
	// DSN overrides every other connection setting when set.
	DSN        string
	SQLitePath string
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Migrate         bool
	LogSQL          bool

	IngestSource       string
	MQTTBroker         string
	MQTTPort           int
	MQTTClientID       string
	MQTTTopic          string
	PubSubProjectID    string
	PubSubSubscription string

	// AuthFile enables Basic Auth when it names an existing file.
	AuthFile string

	DashboardConfig string
	Dashboard       Dashboard
}

func LoadFromEnv() (Config, error) {
	appEnv := env("APP_ENV", "dev")
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(env("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	staticDir := env("STATIC_DIR", "static")
	staticDir, err = filepath.Abs(staticDir)
	if err != nil {
		return Config{}, fmt.Errorf("STATIC_DIR %q: %w", staticDir, err)
	}

	driver := strings.ToLower(env("DB_DRIVER", DriverSQLite))
	var defaultPort, defaultConns string
	switch driver {
	case DriverSQLite:
		defaultConns = "1"
	case DriverPostgres:
		defaultPort, defaultConns = "5432", "10"
	case DriverMySQL:
		defaultPort, defaultConns = "3306", "10"
	case DriverSnowflake:
		defaultConns = "4"
	default:
		return Config{}, fmt.Errorf("invalid DB_DRIVER %q (allowed: sqlite3, postgres, mysql, snowflake)", driver)
	}

	dsn := env("DB_DSN", "")
	if driver == DriverSnowflake && dsn == "" {
		return Config{}, fmt.Errorf("DB_DSN is required for DB_DRIVER %q", driver)
	}

	dbPort, err := envInt("DB_PORT", defaultPort)
	if err != nil {
		return Config{}, err
	}
	maxOpenConns, err := envInt("DB_MAX_OPEN_CONNS", defaultConns)
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := envInt("DB_MAX_IDLE_CONNS", defaultConns)
	if err != nil {
		return Config{}, err
	}

	connMaxLifetimeStr := env("DB_CONN_MAX_LIFETIME", "0s")
	connMaxLifetime, err := time.ParseDuration(connMaxLifetimeStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME %q: %w", connMaxLifetimeStr, err)
	}

	migrateDefault := "false"
	if driver == DriverSQLite {
		migrateDefault = "true"
	}
	migrate, err := envBool("DB_MIGRATE", migrateDefault)
	if err != nil {
		return Config{}, err
	}
	if migrate && driver == DriverSnowflake {
		return Config{}, fmt.Errorf("DB_MIGRATE is not supported for DB_DRIVER %q", driver)
	}
	logSQL, err := envBool("DB_LOG_SQL", "false")
	if err != nil {
		return Config{}, err
	}

	ingest := strings.ToLower(env("INGEST_SOURCE", IngestNone))
	switch ingest {
	case IngestNone, IngestMQTT, IngestPubSub:
	default:
		return Config{}, fmt.Errorf("invalid INGEST_SOURCE %q (allowed: none, mqtt, pubsub)", ingest)
	}
	if ingest != IngestNone && driver == DriverSnowflake {
		return Config{}, fmt.Errorf("INGEST_SOURCE %q needs a writable store, DB_DRIVER %q is read-only", ingest, driver)
	}

	mqttPort, err := envInt("MQTT_PORT", "1883")
	if err != nil {
		return Config{}, err
	}
	if mqttPort <= 0 || mqttPort > 65535 {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %d (allowed: 1-65535)", mqttPort)
	}

	projectID := env("PUBSUB_PROJECT_ID", "")
	subscription := env("PUBSUB_SUBSCRIPTION", "")
	if ingest == IngestPubSub && (projectID == "" || subscription == "") {
		return Config{}, fmt.Errorf("PUBSUB_PROJECT_ID and PUBSUB_SUBSCRIPTION are required for INGEST_SOURCE %q", ingest)
	}

	dashboardPath := env("DASHBOARD_CONFIG", "")
	dashboard := DefaultDashboard()
	if dashboardPath != "" {
		dashboard, err = LoadDashboard(dashboardPath)
		if err != nil {
			return Config{}, err
		}
	}

	return Config{
		AppEnv:             appEnv,
		LogLevel:           level,
		HTTPAddr:           env("HTTP_ADDR", ":8080"),
		StaticDir:          staticDir,
		Driver:             driver,
		DSN:                dsn,
		SQLitePath:         env("SQLITE_PATH", "data/events.db"),
		DBHost:             env("DB_HOST", "localhost"),
		DBPort:             dbPort,
		DBUser:             env("DB_USER", ""),
		DBPassword:         os.Getenv("DB_PASSWORD"),
		DBName:             env("DB_NAME", "events"),
		DBSSLMode:          env("DB_SSLMODE", "disable"),
		MaxOpenConns:       maxOpenConns,
		MaxIdleConns:       maxIdleConns,
		ConnMaxLifetime:    connMaxLifetime,
		Migrate:            migrate,
		LogSQL:             logSQL,
		IngestSource:       ingest,
		MQTTBroker:         env("MQTT_BROKER", "localhost"),
		MQTTPort:           mqttPort,
		MQTTClientID:       env("MQTT_CLIENT_ID", "seattle-events"),
		MQTTTopic:          env("MQTT_TOPIC", "seattle/events"),
		PubSubProjectID:    projectID,
		PubSubSubscription: subscription,
		AuthFile:           env("AUTH_FILE", ""),
		DashboardConfig:    dashboardPath,
		Dashboard:          dashboard,
	}, nil
}

func env(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key, def string) (int, error) {
	s := env(key, def)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func envBool(key, def string) (bool, error) {
	s := env(key, def)
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
