// Package ingest decodes event records delivered as structured-mode
// CloudEvents and hands them to a sink.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

const (
	// EventType marks a create-or-replace of one event record.
	EventType     = "org.seattle.events.event.upserted"
	DefaultSource = "seattle-events/publish"
)

// ErrInvalid wraps every decode or validation failure. Such messages can
// never succeed and are dropped rather than redelivered.
var ErrInvalid = errors.New("invalid event message")

// NewCloudEvent wraps rec in a CloudEvent with a fresh id.
func NewCloudEvent(rec Record, source string) (cloudevents.Event, error) {
	if source == "" {
		source = DefaultSource
	}
	event := cloudevents.NewEvent()
	event.SetID(uuid.NewString())
	event.SetSource(source)
	event.SetType(EventType)
	event.SetTime(time.Now().UTC())
	event.SetSpecVersion(cloudevents.VersionV1)
	event.SetSubject(fmt.Sprintf("event/%d", rec.ID))
	if err := event.SetData(cloudevents.ApplicationJSON, rec); err != nil {
		return cloudevents.Event{}, fmt.Errorf("set event data: %w", err)
	}
	if err := event.Validate(); err != nil {
		return cloudevents.Event{}, fmt.Errorf("validate cloudevent: %w", err)
	}
	return event, nil
}

// Encode returns the structured-mode JSON of rec.
func Encode(rec Record, source string) ([]byte, error) {
	event, err := NewCloudEvent(rec, source)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal cloudevent: %w", err)
	}
	return data, nil
}

// Decode parses a structured-mode CloudEvent and returns its validated
// record. All failures wrap ErrInvalid.
func Decode(payload []byte) (Record, error) {
	var event cloudevents.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := event.Validate(); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if event.Type() != EventType {
		return Record{}, fmt.Errorf("%w: unexpected type %q", ErrInvalid, event.Type())
	}
	var rec Record
	if err := event.DataAs(&rec); err != nil {
		return Record{}, fmt.Errorf("%w: data: %v", ErrInvalid, err)
	}
	if err := rec.Validate(); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return rec, nil
}
