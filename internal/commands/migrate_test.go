package commands

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"seattle-events/internal/config"
)

func sqliteConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Driver:       config.DriverSQLite,
		SQLitePath:   filepath.Join(t.TempDir(), "events.db"),
		MaxOpenConns: 1,
	}
}

func TestMigrate(t *testing.T) {
	cfg := sqliteConfig(t)

	steps := []struct {
		args []string
		want string
	}{
		{args: []string{"version"}, want: "no migrations applied\n"},
		{args: nil, want: "version 2\n"},
		{args: []string{"goto", "1"}, want: "version 1\n"},
		{args: []string{"up"}, want: "version 2\n"},
		{args: []string{"down"}, want: "no migrations applied\n"},
	}
	for _, step := range steps {
		var out bytes.Buffer
		if err := Migrate(step.args, cfg, &out); err != nil {
			t.Fatalf("Migrate(%v): %v", step.args, err)
		}
		if out.String() != step.want {
			t.Errorf("Migrate(%v) output = %q, want %q", step.args, out.String(), step.want)
		}
	}
}

func TestMigrate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		driver  string
		wantErr string
	}{
		{name: "unknown action", args: []string{"sideways"}, wantErr: "unknown migrate action"},
		{name: "goto without version", args: []string{"goto"}, wantErr: "requires a version"},
		{name: "goto bad version", args: []string{"goto", "two"}, wantErr: "invalid version"},
		{name: "snowflake", args: []string{"up"}, driver: config.DriverSnowflake, wantErr: "not supported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := sqliteConfig(t)
			if tt.driver != "" {
				cfg.Driver = tt.driver
			}
			err := Migrate(tt.args, cfg, &bytes.Buffer{})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Migrate(%v) error = %v, want containing %q", tt.args, err, tt.wantErr)
			}
		})
	}
}
