package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"seattle-events/internal/config"
	"seattle-events/internal/db"
	"seattle-events/internal/migrate"
	"seattle-events/internal/modules/events/pipeline"
	"seattle-events/internal/modules/events/types"
)

func setupTestDB(t *testing.T, upTo uint) *sql.DB {
	t.Helper()
	cfg := config.Config{
		Driver:       config.DriverSQLite,
		SQLitePath:   filepath.Join(t.TempDir(), "events.db"),
		MaxOpenConns: 1,
	}
	if err := migrate.To(cfg, upTo); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	conn, err := db.Open(cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := conn.Close(); closeErr != nil {
			t.Fatalf("close db: %v", closeErr)
		}
	})
	return conn
}

func intPtr(v int) *int { return &v }

func sampleEvent(id int64) types.Event {
	return types.Event{
		ID:                 id,
		Name:               "Seafair Pirates Run",
		Date:               pipeline.ParseEventDate("Now through July 14, 2024"),
		Location:           "Alki Beach",
		Category:           "Festival",
		Region:             "West Seattle",
		Longitude:          -122.4090,
		Latitude:           47.5790,
		Temperature:        types.Known(68.5),
		MinTemperature:     types.Known(57),
		MaxTemperature:     types.Measurement{},
		Humidity:           intPtr(61),
		Description:        "Pirates land on the beach.",
		WeatherDescription: "clear sky",
	}
}

func TestListEvents_Empty(t *testing.T) {
	repo := NewRepository(setupTestDB(t, migrate.SchemaVersion), config.DriverSQLite)

	events, err := repo.ListEvents(context.Background())
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if events == nil || len(events) != 0 {
		t.Fatalf("ListEvents = %#v, want empty non-nil slice", events)
	}
}

func TestListEvents_SeedData(t *testing.T) {
	repo := NewRepository(setupTestDB(t, 2), config.DriverSQLite)

	events, err := repo.ListEvents(context.Background())
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 10 {
		t.Fatalf("ListEvents: got %d events, want 10", len(events))
	}
	for i, ev := range events {
		if ev.ID != int64(i+1) {
			t.Errorf("events[%d].ID = %d, want ordered by id", i, ev.ID)
		}
	}

	first := events[0]
	if first.Category != "Music" || !first.Date.Day.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("first = %+v", first)
	}
	if !first.Temperature.Valid || first.Temperature.Value != 50 {
		t.Errorf("first.Temperature = %+v, want 50", first.Temperature)
	}

	artWalk := events[2]
	if artWalk.Temperature.Valid || artWalk.Humidity != nil {
		t.Errorf("Not found row scanned as %+v / humidity %v, want invalid", artWalk.Temperature, artWalk.Humidity)
	}

	chihuly := events[3]
	if chihuly.Date.Kind != types.DateRange || chihuly.Date.String() != "2024-03-31" {
		t.Errorf("range date = %+v", chihuly.Date)
	}

	ballard := events[6]
	if ballard.Date.Valid() || ballard.Date.Raw != "TBD" {
		t.Errorf("TBD date = %+v, want absent with raw preserved", ballard.Date)
	}
}

func TestGetEvent(t *testing.T) {
	repo := NewRepository(setupTestDB(t, 2), config.DriverSQLite)

	ev, err := repo.GetEvent(context.Background(), 5)
	if err != nil {
		t.Fatalf("GetEvent(5): %v", err)
	}
	if ev.Name != "Pike Place Food Tour" || ev.Date.String() != "2024-04-12" {
		t.Errorf("GetEvent(5) = %+v", ev)
	}

	_, err = repo.GetEvent(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetEvent(999) error = %v, want ErrNotFound", err)
	}
}

func TestUpsertEvent_InsertThenUpdate(t *testing.T) {
	repo := NewRepository(setupTestDB(t, migrate.SchemaVersion), config.DriverSQLite)
	ctx := context.Background()

	in := sampleEvent(42)
	if err := repo.UpsertEvent(ctx, in); err != nil {
		t.Fatalf("UpsertEvent: %v", err)
	}

	got, err := repo.GetEvent(ctx, 42)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if got.Name != in.Name || got.Location != in.Location || got.Region != in.Region {
		t.Errorf("round trip = %+v", got)
	}
	if got.Date.Raw != "Now through July 14, 2024" || got.Date.Kind != types.DateRange {
		t.Errorf("Date = %+v", got.Date)
	}
	if got.Temperature != in.Temperature || got.MinTemperature != in.MinTemperature || got.MaxTemperature.Valid {
		t.Errorf("temperatures = %v/%v/%v", got.Temperature, got.MinTemperature, got.MaxTemperature)
	}
	if got.Humidity == nil || *got.Humidity != 61 {
		t.Errorf("Humidity = %v, want 61", got.Humidity)
	}

	in.Name = "Seafair Pirates Landing"
	in.Temperature = types.Measurement{}
	in.Humidity = nil
	if err := repo.UpsertEvent(ctx, in); err != nil {
		t.Fatalf("UpsertEvent (update): %v", err)
	}
	got, err = repo.GetEvent(ctx, 42)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if got.Name != "Seafair Pirates Landing" || got.Temperature.Valid || got.Humidity != nil {
		t.Errorf("after update = %+v", got)
	}

	n, err := repo.CountEvents(ctx)
	if err != nil {
		t.Fatalf("CountEvents: %v", err)
	}
	if n != 1 {
		t.Errorf("CountEvents = %d, want 1", n)
	}
}

func TestUpsertEvent_Validation(t *testing.T) {
	repo := NewRepository(setupTestDB(t, migrate.SchemaVersion), config.DriverSQLite)

	tests := []struct {
		name string
		ev   types.Event
	}{
		{name: "zero id", ev: types.Event{Name: "x"}},
		{name: "negative id", ev: types.Event{ID: -3, Name: "x"}},
		{name: "blank name", ev: types.Event{ID: 3, Name: "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := repo.UpsertEvent(context.Background(), tt.ev); err == nil {
				t.Fatal("UpsertEvent error = nil, want non-nil")
			}
		})
	}
}

func TestUpsertEvent_ReadOnly(t *testing.T) {
	repo := NewRepository(setupTestDB(t, migrate.SchemaVersion), config.DriverSnowflake)
	err := repo.UpsertEvent(context.Background(), sampleEvent(1))
	if !errors.Is(err, ErrReadOnly) {
		t.Fatalf("UpsertEvent error = %v, want ErrReadOnly", err)
	}
}

func TestListEvents_ContextCanceled(t *testing.T) {
	repo := NewRepository(setupTestDB(t, 2), config.DriverSQLite)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := repo.ListEvents(ctx); err == nil {
		t.Fatal("ListEvents(canceled) error = nil, want non-nil")
	}
}

func TestNewRepository_Dialects(t *testing.T) {
	pg := NewRepository(nil, config.DriverPostgres).(*repositoryImpl)
	if strings.Contains(pg.getEvent, "?") || !strings.Contains(pg.getEvent, "$1") {
		t.Errorf("postgres get statement not rebound: %q", pg.getEvent)
	}
	if !strings.Contains(pg.upsertEvent, "$14") {
		t.Errorf("postgres upsert statement missing $14: %q", pg.upsertEvent)
	}

	my := NewRepository(nil, config.DriverMySQL).(*repositoryImpl)
	if !strings.Contains(my.upsertEvent, "ON DUPLICATE KEY UPDATE") {
		t.Errorf("mysql upsert = %q", my.upsertEvent)
	}
}

func TestRebindDollar(t *testing.T) {
	got := rebindDollar("SELECT a FROM t WHERE x = ? AND y IN (?, ?)")
	want := "SELECT a FROM t WHERE x = $1 AND y IN ($2, $3)"
	if got != want {
		t.Errorf("rebindDollar = %q, want %q", got, want)
	}
}
