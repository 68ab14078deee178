package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"seattle-events/internal/config"
	"seattle-events/internal/modules/events/pipeline"
	"seattle-events/internal/modules/events/types"
)

//go:embed sql/list-events.sql
var listEventsSQL string

//go:embed sql/get-event.sql
var getEventSQL string

//go:embed sql/count-events.sql
var countEventsSQL string

//go:embed sql/upsert-event.sql
var upsertEventSQL string

//go:embed sql/upsert-event.mysql.sql
var upsertEventMySQLSQL string

var (
	ErrNotFound = errors.New("event not found")
	ErrReadOnly = errors.New("event store is read-only")
)

type EventRepository interface {
	ListEvents(ctx context.Context) ([]types.Event, error)
	GetEvent(ctx context.Context, id int64) (types.Event, error)
	CountEvents(ctx context.Context) (int, error)
	UpsertEvent(ctx context.Context, ev types.Event) error
}

type repositoryImpl struct {
	db       *sql.DB
	readOnly bool

	getEvent    string
	upsertEvent string
}

// NewRepository binds the statements to the dialect of driver. Snowflake is
// served read-only.
func NewRepository(db *sql.DB, driver string) EventRepository {
	r := &repositoryImpl{
		db:          db,
		readOnly:    driver == config.DriverSnowflake,
		getEvent:    getEventSQL,
		upsertEvent: upsertEventSQL,
	}
	switch driver {
	case config.DriverPostgres:
		r.getEvent = rebindDollar(getEventSQL)
		r.upsertEvent = rebindDollar(upsertEventSQL)
	case config.DriverMySQL:
		r.upsertEvent = upsertEventMySQLSQL
	}
	return r
}

func (r *repositoryImpl) ListEvents(ctx context.Context) ([]types.Event, error) {
	rows, err := r.db.QueryContext(ctx, listEventsSQL)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close events rows", "error", err)
		}
	}()

	out := make([]types.Event, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

func (r *repositoryImpl) GetEvent(ctx context.Context, id int64) (types.Event, error) {
	ev, err := scanEvent(r.db.QueryRowContext(ctx, r.getEvent, id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Event{}, ErrNotFound
	}
	if err != nil {
		return types.Event{}, err
	}
	return ev, nil
}

func (r *repositoryImpl) CountEvents(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, countEventsSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

func (r *repositoryImpl) UpsertEvent(ctx context.Context, ev types.Event) error {
	if r.readOnly {
		return ErrReadOnly
	}
	if ev.ID <= 0 {
		return fmt.Errorf("upsert event: invalid id %d", ev.ID)
	}
	if strings.TrimSpace(ev.Name) == "" {
		return fmt.Errorf("upsert event %d: name is required", ev.ID)
	}

	var humidity any
	if ev.Humidity != nil {
		humidity = *ev.Humidity
	}

	_, err := r.db.ExecContext(ctx, r.upsertEvent,
		ev.ID,
		ev.Name,
		nullString(rawDate(ev.Date)),
		nullString(ev.Location),
		nullString(ev.Category),
		nullString(ev.Region),
		ev.Longitude,
		ev.Latitude,
		measurementValue(ev.Temperature),
		measurementValue(ev.MinTemperature),
		measurementValue(ev.MaxTemperature),
		humidity,
		nullString(ev.Description),
		nullString(ev.WeatherDescription),
	)
	if err != nil {
		return fmt.Errorf("upsert event %d: %w", ev.ID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanEvent reads one row. Text and numeric columns are both accepted for
// temperatures so upstream sentinels like "Not found" survive the scan.
func scanEvent(row rowScanner) (types.Event, error) {
	var (
		ev                             types.Event
		name, date, location, category sql.NullString
		region, description, weather   sql.NullString
		lon, lat                       sql.NullFloat64
		temperature, minTemp, maxTemp  sql.NullString
		humidity                       sql.NullInt64
	)
	err := row.Scan(
		&ev.ID, &name, &date, &location, &category, &region,
		&lon, &lat,
		&temperature, &minTemp, &maxTemp, &humidity,
		&description, &weather,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Event{}, err
		}
		return types.Event{}, fmt.Errorf("scan event: %w", err)
	}

	ev.Name = name.String
	ev.Date = pipeline.ParseEventDate(date.String)
	ev.Location = location.String
	ev.Category = category.String
	ev.Region = region.String
	ev.Longitude = lon.Float64
	ev.Latitude = lat.Float64
	ev.Temperature = types.ParseMeasurement(temperature.String)
	ev.MinTemperature = types.ParseMeasurement(minTemp.String)
	ev.MaxTemperature = types.ParseMeasurement(maxTemp.String)
	if humidity.Valid {
		h := int(humidity.Int64)
		ev.Humidity = &h
	}
	ev.Description = description.String
	ev.WeatherDescription = weather.String
	return ev, nil
}

func rawDate(d types.EventDate) string {
	if d.Raw != "" {
		return d.Raw
	}
	return d.String()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func measurementValue(m types.Measurement) any {
	if !m.Valid {
		return nil
	}
	return strconv.FormatFloat(m.Value, 'f', -1, 64)
}

// rebindDollar rewrites ? placeholders to $1..$n for lib/pq. The embedded
// statements contain no string literals, so every ? is a placeholder.
func rebindDollar(query string) string {
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
