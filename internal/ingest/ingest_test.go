package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"seattle-events/internal/metrics"
	"seattle-events/internal/modules/events/types"
)

func sampleRecord() Record {
	humidity := 72
	return Record{
		ID:                    11,
		EventName:             "Fremont Solstice Parade",
		EventDate:             "Now through June 22, 2024",
		EventLocation:         "Fremont",
		EventType:             "Festival",
		EventRegion:           "North Seattle",
		LocationLongitude:     -122.35,
		LocationLatitude:      47.65,
		Temperature:           types.Known(64.5),
		MinTemperature:        types.Known(55),
		Humidity:              &humidity,
		WeatherDescriptionNew: "few clouds",
	}
}

func TestEncodeDecode(t *testing.T) {
	payload, err := Encode(sampleRecord(), "")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var envelope map[string]any
	if err := json.Unmarshal(payload, &envelope); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if envelope["type"] != EventType || envelope["specversion"] != "1.0" || envelope["source"] != DefaultSource {
		t.Errorf("envelope = %v", envelope)
	}
	if id, _ := envelope["id"].(string); len(id) != 36 {
		t.Errorf("id = %v, want uuid", envelope["id"])
	}

	rec, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	ev := rec.Event()
	if ev.ID != 11 || ev.Name != "Fremont Solstice Parade" || ev.Category != "Festival" {
		t.Errorf("event = %+v", ev)
	}
	if ev.Date.Kind != types.DateRange || ev.Date.String() != "2024-06-22" {
		t.Errorf("date = %+v", ev.Date)
	}
	if ev.Temperature != types.Known(64.5) || ev.MaxTemperature.Valid {
		t.Errorf("temperatures = %v/%v", ev.Temperature, ev.MaxTemperature)
	}
	if ev.Humidity == nil || *ev.Humidity != 72 {
		t.Errorf("humidity = %v", ev.Humidity)
	}
}

func cloudEvent(t *testing.T, eventType string, data any) []byte {
	t.Helper()
	event := cloudevents.NewEvent()
	event.SetID("abc")
	event.SetSource("test")
	event.SetType(eventType)
	if err := event.SetData(cloudevents.ApplicationJSON, data); err != nil {
		t.Fatalf("SetData: %v", err)
	}
	b, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "not json", payload: []byte("hello")},
		{name: "missing attributes", payload: []byte(`{"data":{"id":1}}`)},
		{name: "wrong type", payload: cloudEvent(t, "com.example.other", sampleRecord())},
		{name: "zero id", payload: cloudEvent(t, EventType, Record{EventName: "x"})},
		{name: "blank name", payload: cloudEvent(t, EventType, Record{ID: 3, EventName: "  "})},
		{name: "bad data", payload: cloudEvent(t, EventType, map[string]any{"id": "three"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.payload)
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("Decode() error = %v, want ErrInvalid", err)
			}
			if Retryable(err) {
				t.Error("Retryable() = true for invalid payload")
			}
		})
	}
}

func TestDecode_NotFoundTemperature(t *testing.T) {
	payload := cloudEvent(t, EventType, map[string]any{
		"id":          4,
		"event_name":  "Night Market",
		"event_date":  "TBD",
		"temperature": "Not found",
	})
	rec, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	ev := rec.Event()
	if ev.Temperature.Valid || ev.Date.Valid() || ev.Date.Raw != "TBD" {
		t.Errorf("event = %+v", ev)
	}
}

func TestRecordValidate(t *testing.T) {
	bad := 140
	rec := sampleRecord()
	rec.ID = 0
	rec.EventName = ""
	rec.Humidity = &bad
	err := rec.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want joined errors")
	}
	for _, want := range []string{"id must be positive", "event_name is required", "humidity out of range"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestFromEvent(t *testing.T) {
	rec := sampleRecord()
	back := FromEvent(rec.Event())
	if back.EventDate != rec.EventDate || back.EventType != rec.EventType || back.WeatherDescriptionNew != rec.WeatherDescriptionNew {
		t.Errorf("FromEvent(Event()) = %+v, want %+v", back, rec)
	}
}

func TestHandler(t *testing.T) {
	payload, err := Encode(sampleRecord(), "test")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	t.Run("stores valid events", func(t *testing.T) {
		var got []types.Event
		h := NewHandler("mqtt", func(ctx context.Context, ev types.Event) error {
			got = append(got, ev)
			return nil
		}, metrics.New(), nil)

		if err := h.Handle(context.Background(), payload); err != nil {
			t.Fatalf("Handle: %v", err)
		}
		if len(got) != 1 || got[0].ID != 11 {
			t.Errorf("stored = %+v", got)
		}
	})

	t.Run("sink errors are retryable", func(t *testing.T) {
		h := NewHandler("pubsub", func(ctx context.Context, ev types.Event) error {
			return errors.New("db locked")
		}, nil, nil)
		err := h.Handle(context.Background(), payload)
		if err == nil || !Retryable(err) {
			t.Errorf("Handle() error = %v, want retryable", err)
		}
	})

	t.Run("invalid payload never reaches the sink", func(t *testing.T) {
		called := false
		h := NewHandler("mqtt", func(ctx context.Context, ev types.Event) error {
			called = true
			return nil
		}, nil, nil)
		if err := h.Handle(context.Background(), []byte("{}")); !errors.Is(err, ErrInvalid) {
			t.Errorf("Handle() error = %v, want ErrInvalid", err)
		}
		if called {
			t.Error("sink called for invalid payload")
		}
	})
}
