package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// NotFound is the sentinel stored in place of a missing measurement.
const NotFound = "Not found"

const dayLayout = "2006-01-02"

type DateKind int

const (
	DateAbsent DateKind = iota
	DatePlain
	DateRange
)

func (k DateKind) String() string {
	switch k {
	case DatePlain:
		return "plain"
	case DateRange:
		return "range"
	default:
		return "absent"
	}
}

// EventDate is the resolved form of the free-text event_date column.
// Day is the calendar day at UTC midnight and is zero when Kind is DateAbsent.
// For DateRange ("Now through <date>") Day is the end of the range.
type EventDate struct {
	Raw  string
	Kind DateKind
	Day  time.Time
}

func (d EventDate) Valid() bool {
	return d.Kind != DateAbsent
}

func (d EventDate) String() string {
	if !d.Valid() {
		return ""
	}
	return d.Day.Format(dayLayout)
}

func (d EventDate) MarshalJSON() ([]byte, error) {
	var day *string
	if d.Valid() {
		s := d.String()
		day = &s
	}
	return json.Marshal(struct {
		Raw  string  `json:"raw"`
		Date *string `json:"date"`
		Kind string  `json:"kind"`
	}{Raw: d.Raw, Date: day, Kind: d.Kind.String()})
}

// Measurement is a numeric weather value that may be missing.
type Measurement struct {
	Value float64
	Valid bool
}

func Known(v float64) Measurement {
	return Measurement{Value: v, Valid: true}
}

// ParseMeasurement accepts the textual column value. Anything that is not a
// finite number (NotFound, empty, free text) yields an invalid measurement.
func ParseMeasurement(s string) Measurement {
	s = strings.TrimSpace(s)
	if s == "" {
		return Measurement{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Measurement{}
	}
	return Known(v)
}

func (m Measurement) String() string {
	if !m.Valid {
		return NotFound
	}
	return strconv.FormatFloat(m.Value, 'f', -1, 64)
}

func (m Measurement) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return json.Marshal(NotFound)
	}
	return json.Marshal(m.Value)
}

func (m *Measurement) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*m = Measurement{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return fmt.Errorf("measurement: %w", err)
		}
		*m = ParseMeasurement(str)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("measurement: %w", err)
	}
	*m = Known(v)
	return nil
}

// Event is one row of the event table.
type Event struct {
	ID                 int64       `json:"id"`
	Name               string      `json:"name"`
	Date               EventDate   `json:"date"`
	Location           string      `json:"location"`
	Category           string      `json:"category"`
	Region             string      `json:"region"`
	Longitude          float64     `json:"longitude"`
	Latitude           float64     `json:"latitude"`
	Temperature        Measurement `json:"temperature"`
	MinTemperature     Measurement `json:"minTemperature"`
	MaxTemperature     Measurement `json:"maxTemperature"`
	Humidity           *int        `json:"humidity,omitempty"`
	Description        string      `json:"description"`
	WeatherDescription string      `json:"weatherDescription"`
}
