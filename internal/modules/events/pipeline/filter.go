package pipeline

import (
	"time"

	"seattle-events/internal/modules/events/types"
)

// MissingDateRangeWarning is reported when a date range is requested without
// both ends. The date predicate is skipped in that case.
const MissingDateRangeWarning = "Please select both a start and end date."

// DateWindowMonths is the length of the default date picker window.
const DateWindowMonths = 6

// Filter is the full set of selections for one interaction. A zero Filter
// selects nothing; start from DefaultFilter.
type Filter struct {
	AllCategories bool
	Categories    []string

	AllLocations bool
	Locations    []string

	// MaxTemp is exclusive.
	AllTemperatures bool
	MinTemp         float64
	MaxTemp         float64

	// StartDate and EndDate are inclusive calendar days.
	AllDates  bool
	StartDate *time.Time
	EndDate   *time.Time

	SortField SortField
	SortOrder SortOrder
}

// DefaultFilter is the unrestricted filter, sorted by date ascending.
func DefaultFilter() Filter {
	return Filter{
		AllCategories:   true,
		AllLocations:    true,
		AllTemperatures: true,
		AllDates:        true,
		SortField:       SortByDate,
		SortOrder:       Ascending,
	}
}

// Clear resets every selection to its default and keeps the sort settings.
func Clear(f Filter) Filter {
	cleared := DefaultFilter()
	if f.SortField.valid() {
		cleared.SortField = f.SortField
	}
	if f.SortOrder.valid() {
		cleared.SortOrder = f.SortOrder
	}
	return cleared
}

type DateWindow struct {
	Start time.Time `json:"start"`
	// End is exclusive.
	End time.Time `json:"end"`
}

// DefaultDateWindow is [today, today + DateWindowMonths).
func DefaultDateWindow(now time.Time) DateWindow {
	return NewDateWindow(now, DateWindowMonths)
}

func NewDateWindow(now time.Time, months int) DateWindow {
	if months <= 0 {
		months = DateWindowMonths
	}
	today := truncateDay(now.UTC())
	return DateWindow{Start: today, End: today.AddDate(0, months, 0)}
}

// Bounds describes the option universe of a sanitized snapshot.
type Bounds struct {
	Categories []string  `json:"categories"`
	Locations  []string  `json:"locations"`
	HasTemp    bool      `json:"hasTemp"`
	MinTemp    float64   `json:"minTemp"`
	MaxTemp    float64   `json:"maxTemp"`
	HasDates   bool      `json:"hasDates"`
	FirstDate  time.Time `json:"firstDate"`
	LastDate   time.Time `json:"lastDate"`
}

type Result struct {
	Events     []types.Event `json:"events"`
	Warnings   []string      `json:"warnings"`
	Bounds     Bounds        `json:"bounds"`
	DateWindow DateWindow    `json:"dateWindow"`
	// Total is the size of the temperature-sanitized set.
	Total int `json:"total"`
}

// Sanitize drops records without a numeric temperature. Such records never
// satisfy a temperature predicate, so they are removed before any filtering.
func Sanitize(events []types.Event) []types.Event {
	out := make([]types.Event, 0, len(events))
	for _, ev := range events {
		if ev.Temperature.Valid {
			out = append(out, ev)
		}
	}
	return out
}

func ComputeBounds(events []types.Event) Bounds {
	b := Bounds{Categories: []string{}, Locations: []string{}}
	seenCat := make(map[string]bool)
	seenLoc := make(map[string]bool)
	for _, ev := range events {
		if c, ok := present(ev.Category); ok && !seenCat[c] {
			seenCat[c] = true
			b.Categories = append(b.Categories, c)
		}
		if l, ok := present(ev.Location); ok && !seenLoc[l] {
			seenLoc[l] = true
			b.Locations = append(b.Locations, l)
		}
		if ev.Temperature.Valid {
			v := ev.Temperature.Value
			if !b.HasTemp || v < b.MinTemp {
				b.MinTemp = v
			}
			if !b.HasTemp || v > b.MaxTemp {
				b.MaxTemp = v
			}
			b.HasTemp = true
		}
		if ev.Date.Valid() {
			d := ev.Date.Day
			if !b.HasDates || d.Before(b.FirstDate) {
				b.FirstDate = d
			}
			if !b.HasDates || d.After(b.LastDate) {
				b.LastDate = d
			}
			b.HasDates = true
		}
	}
	return b
}

// Run applies f to the snapshot: sanitize, filter by category, location,
// temperature and date, then stable-sort by the selected field. A date range
// missing either end yields a warning and the whole sanitized set.
func Run(events []types.Event, f Filter, now time.Time) Result {
	sanitized := Sanitize(events)
	res := Result{
		Warnings:   []string{},
		Bounds:     ComputeBounds(sanitized),
		DateWindow: DefaultDateWindow(now),
		Total:      len(sanitized),
	}

	applyDates := !f.AllDates
	if applyDates && (f.StartDate == nil || f.EndDate == nil) {
		// An incomplete range drops every selection, not only the dates.
		res.Warnings = append(res.Warnings, MissingDateRangeWarning)
		Sort(sanitized, f.SortField, f.SortOrder)
		res.Events = sanitized
		return res
	}

	categories := toSet(f.Categories)
	locations := toSet(f.Locations)

	var start, end time.Time
	if applyDates {
		start = truncateDay(f.StartDate.UTC())
		end = truncateDay(f.EndDate.UTC())
	}

	out := make([]types.Event, 0, len(sanitized))
	for _, ev := range sanitized {
		if !f.AllCategories && !categories[ev.Category] {
			continue
		}
		if !f.AllLocations && !locations[ev.Location] {
			continue
		}
		if !f.AllTemperatures && !inTempRange(ev.Temperature, f.MinTemp, f.MaxTemp) {
			continue
		}
		if applyDates && !inDateRange(ev.Date, start, end) {
			continue
		}
		out = append(out, ev)
	}

	Sort(out, f.SortField, f.SortOrder)
	res.Events = out
	return res
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func inTempRange(m types.Measurement, lo, hi float64) bool {
	return m.Valid && m.Value >= lo && m.Value < hi
}

func inDateRange(d types.EventDate, start, end time.Time) bool {
	if !d.Valid() {
		return false
	}
	return !d.Day.Before(start) && !d.Day.After(end)
}
