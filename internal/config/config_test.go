package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var envKeys = []string{
	"APP_ENV", "LOG_LEVEL", "HTTP_ADDR", "STATIC_DIR",
	"DB_DRIVER", "DB_DSN", "SQLITE_PATH", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
	"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME", "DB_MIGRATE", "DB_LOG_SQL",
	"INGEST_SOURCE", "MQTT_BROKER", "MQTT_PORT", "MQTT_CLIENT_ID", "MQTT_TOPIC",
	"PUBSUB_PROJECT_ID", "PUBSUB_SUBSCRIPTION", "AUTH_FILE", "DASHBOARD_CONFIG",
}

// clearEnv blanks every variable LoadFromEnv reads so host settings cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}

	if got.AppEnv != "dev" {
		t.Errorf("AppEnv = %q, want %q", got.AppEnv, "dev")
	}
	if got.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", got.LogLevel, slog.LevelInfo)
	}
	if got.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", got.HTTPAddr, ":8080")
	}
	if got.Driver != DriverSQLite {
		t.Errorf("Driver = %q, want %q", got.Driver, DriverSQLite)
	}
	if got.MaxOpenConns != 1 || got.MaxIdleConns != 1 {
		t.Errorf("conns = %d/%d, want 1/1", got.MaxOpenConns, got.MaxIdleConns)
	}
	if !got.Migrate {
		t.Error("Migrate = false, want true for sqlite3")
	}
	if got.IngestSource != IngestNone {
		t.Errorf("IngestSource = %q, want %q", got.IngestSource, IngestNone)
	}
	if got.MQTTPort != 1883 {
		t.Errorf("MQTTPort = %d, want 1883", got.MQTTPort)
	}
	if !filepath.IsAbs(got.StaticDir) {
		t.Errorf("StaticDir = %q, want absolute path", got.StaticDir)
	}
	if got.Dashboard.Title != DefaultDashboard().Title {
		t.Errorf("Dashboard.Title = %q, want default", got.Dashboard.Title)
	}
}

func TestLoadFromEnv_AppEnv(t *testing.T) {
	tests := []struct {
		name    string
		appEnv  string
		want    string
		wantErr bool
	}{
		{name: "dev", appEnv: "dev", want: "dev"},
		{name: "prod with whitespace", appEnv: "\nprod\t", want: "prod"},
		{name: "staging", appEnv: "staging", wantErr: true},
		{name: "uppercase is not normalized", appEnv: "DEV", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("APP_ENV", tt.appEnv)

			got, err := LoadFromEnv()
			if tt.wantErr {
				if err == nil {
					t.Fatal("LoadFromEnv() error = nil, want non-nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadFromEnv() error = %v, want nil", err)
			}
			if got.AppEnv != tt.want {
				t.Errorf("AppEnv = %q, want %q", got.AppEnv, tt.want)
			}
		})
	}
}

func TestLoadFromEnv_Driver(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		wantErr   bool
		wantPort  int
		wantConns int
		migrate   bool
	}{
		{
			name:      "postgres defaults",
			env:       map[string]string{"DB_DRIVER": "postgres"},
			wantPort:  5432,
			wantConns: 10,
		},
		{
			name:      "mysql defaults",
			env:       map[string]string{"DB_DRIVER": "MySQL"},
			wantPort:  3306,
			wantConns: 10,
		},
		{
			name:      "postgres with explicit migrate",
			env:       map[string]string{"DB_DRIVER": "postgres", "DB_MIGRATE": "true", "DB_PORT": "6543"},
			wantPort:  6543,
			wantConns: 10,
			migrate:   true,
		},
		{
			name:      "snowflake with dsn",
			env:       map[string]string{"DB_DRIVER": "snowflake", "DB_DSN": "user:pw@acct/db/schema"},
			wantConns: 4,
		},
		{name: "snowflake without dsn", env: map[string]string{"DB_DRIVER": "snowflake"}, wantErr: true},
		{name: "snowflake migrate", env: map[string]string{"DB_DRIVER": "snowflake", "DB_DSN": "x", "DB_MIGRATE": "1"}, wantErr: true},
		{name: "unknown driver", env: map[string]string{"DB_DRIVER": "oracle"}, wantErr: true},
		{name: "bad port", env: map[string]string{"DB_DRIVER": "postgres", "DB_PORT": "five"}, wantErr: true},
		{name: "bad migrate flag", env: map[string]string{"DB_MIGRATE": "sometimes"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got, err := LoadFromEnv()
			if tt.wantErr {
				if err == nil {
					t.Fatal("LoadFromEnv() error = nil, want non-nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadFromEnv() error = %v, want nil", err)
			}
			if got.DBPort != tt.wantPort {
				t.Errorf("DBPort = %d, want %d", got.DBPort, tt.wantPort)
			}
			if got.MaxOpenConns != tt.wantConns {
				t.Errorf("MaxOpenConns = %d, want %d", got.MaxOpenConns, tt.wantConns)
			}
			if got.Migrate != tt.migrate {
				t.Errorf("Migrate = %v, want %v", got.Migrate, tt.migrate)
			}
		})
	}
}

func TestLoadFromEnv_ConnMaxLifetime(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_CONN_MAX_LIFETIME", "90s")
	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}
	if got.ConnMaxLifetime != 90*time.Second {
		t.Errorf("ConnMaxLifetime = %v, want 90s", got.ConnMaxLifetime)
	}

	t.Setenv("DB_CONN_MAX_LIFETIME", "forever")
	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("LoadFromEnv() error = nil, want non-nil for bad duration")
	}
}

func TestLoadFromEnv_Ingest(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{name: "mqtt", env: map[string]string{"INGEST_SOURCE": "mqtt", "MQTT_BROKER": "broker"}},
		{name: "pubsub complete", env: map[string]string{"INGEST_SOURCE": "pubsub", "PUBSUB_PROJECT_ID": "p", "PUBSUB_SUBSCRIPTION": "s"}},
		{name: "pubsub missing subscription", env: map[string]string{"INGEST_SOURCE": "pubsub", "PUBSUB_PROJECT_ID": "p"}, wantErr: true},
		{name: "unknown source", env: map[string]string{"INGEST_SOURCE": "kafka"}, wantErr: true},
		{name: "ingest into snowflake", env: map[string]string{"INGEST_SOURCE": "mqtt", "DB_DRIVER": "snowflake", "DB_DSN": "x"}, wantErr: true},
		{name: "mqtt port out of range", env: map[string]string{"MQTT_PORT": "70000"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFromEnv()
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadFromEnv() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromEnv_DashboardConfig(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	if err := os.WriteFile(path, []byte("title: Rainy Days\ndefault_sort: temperature\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("DASHBOARD_CONFIG", path)

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}
	if got.Dashboard.Title != "Rainy Days" || got.Dashboard.DefaultSort != "temperature" {
		t.Errorf("Dashboard = %+v", got.Dashboard)
	}
	if got.Dashboard.DefaultOrder != "asc" {
		t.Errorf("DefaultOrder = %q, want default asc", got.Dashboard.DefaultOrder)
	}

	t.Setenv("DASHBOARD_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("LoadFromEnv() error = nil, want non-nil for missing file")
	}
}

func TestParseDashboard(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Dashboard
		wantErr bool
	}{
		{name: "empty document", in: "", want: DefaultDashboard()},
		{
			name: "charts override",
			in:   "charts: [month, category]\ndate_window_months: 3\n",
			want: Dashboard{
				Title:            "Seattle Events",
				DefaultSort:      "date",
				DefaultOrder:     "asc",
				DateWindowMonths: 3,
				Charts:           []string{"month", "category"},
			},
		},
		{name: "negative window", in: "date_window_months: -2\n", wantErr: true},
		{name: "malformed", in: "charts: [unterminated\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDashboard([]byte(tt.in))
			if tt.wantErr {
				if err == nil {
					t.Fatal("parseDashboard() error = nil, want non-nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDashboard() error = %v", err)
			}
			if got.Title != tt.want.Title || got.DefaultSort != tt.want.DefaultSort ||
				got.DefaultOrder != tt.want.DefaultOrder || got.DateWindowMonths != tt.want.DateWindowMonths {
				t.Errorf("parseDashboard() = %+v, want %+v", got, tt.want)
			}
			if len(got.Charts) != len(tt.want.Charts) {
				t.Fatalf("Charts = %v, want %v", got.Charts, tt.want.Charts)
			}
			for i := range got.Charts {
				if got.Charts[i] != tt.want.Charts[i] {
					t.Errorf("Charts[%d] = %q, want %q", i, got.Charts[i], tt.want.Charts[i])
				}
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "warning", want: slog.LevelWarn},
		{in: "DeBuG", want: slog.LevelDebug},
		{in: "  error \n", want: slog.LevelError},
		{in: "", want: slog.LevelInfo, wantErr: true},
		{in: "loud", want: slog.LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
