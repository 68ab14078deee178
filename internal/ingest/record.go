package ingest

import (
	"errors"
	"fmt"
	"strings"

	"seattle-events/internal/modules/events/pipeline"
	"seattle-events/internal/modules/events/types"
)

// Record is the wire form of one event row. Field names follow the event
// table columns; temperatures accept a number or the "Not found" sentinel.
type Record struct {
	ID                    int64             `json:"id"`
	EventName             string            `json:"event_name"`
	EventDate             string            `json:"event_date,omitempty"`
	EventLocation         string            `json:"event_location,omitempty"`
	EventType             string            `json:"event_type,omitempty"`
	EventRegion           string            `json:"event_region,omitempty"`
	LocationLongitude     float64           `json:"location_longitude,omitempty"`
	LocationLatitude      float64           `json:"location_latitude,omitempty"`
	Temperature           types.Measurement `json:"temperature"`
	MinTemperature        types.Measurement `json:"min_temperature"`
	MaxTemperature        types.Measurement `json:"max_temperature"`
	Humidity              *int              `json:"humidity,omitempty"`
	Description           string            `json:"description,omitempty"`
	WeatherDescriptionNew string            `json:"weather_description_new,omitempty"`
}

func (r Record) Validate() error {
	var errs []error
	if r.ID <= 0 {
		errs = append(errs, fmt.Errorf("id must be positive, got %d", r.ID))
	}
	if strings.TrimSpace(r.EventName) == "" {
		errs = append(errs, errors.New("event_name is required"))
	}
	if r.Humidity != nil && (*r.Humidity < 0 || *r.Humidity > 100) {
		errs = append(errs, fmt.Errorf("humidity out of range: %d (must be 0-100)", *r.Humidity))
	}
	return errors.Join(errs...)
}

func (r Record) Event() types.Event {
	return types.Event{
		ID:                 r.ID,
		Name:               strings.TrimSpace(r.EventName),
		Date:               pipeline.ParseEventDate(r.EventDate),
		Location:           r.EventLocation,
		Category:           r.EventType,
		Region:             r.EventRegion,
		Longitude:          r.LocationLongitude,
		Latitude:           r.LocationLatitude,
		Temperature:        r.Temperature,
		MinTemperature:     r.MinTemperature,
		MaxTemperature:     r.MaxTemperature,
		Humidity:           r.Humidity,
		Description:        r.Description,
		WeatherDescription: r.WeatherDescriptionNew,
	}
}

func FromEvent(ev types.Event) Record {
	date := ev.Date.Raw
	if date == "" {
		date = ev.Date.String()
	}
	return Record{
		ID:                    ev.ID,
		EventName:             ev.Name,
		EventDate:             date,
		EventLocation:         ev.Location,
		EventType:             ev.Category,
		EventRegion:           ev.Region,
		LocationLongitude:     ev.Longitude,
		LocationLatitude:      ev.Latitude,
		Temperature:           ev.Temperature,
		MinTemperature:        ev.MinTemperature,
		MaxTemperature:        ev.MaxTemperature,
		Humidity:              ev.Humidity,
		Description:           ev.Description,
		WeatherDescriptionNew: ev.WeatherDescription,
	}
}
