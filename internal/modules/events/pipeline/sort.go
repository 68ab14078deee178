package pipeline

import (
	"cmp"
	"slices"
	"strings"

	"seattle-events/internal/modules/events/types"
)

type SortField string

const (
	SortByDate        SortField = "date"
	SortByCategory    SortField = "category"
	SortByLocation    SortField = "location"
	SortByTemperature SortField = "temperature"
)

var SortFields = []SortField{SortByDate, SortByCategory, SortByLocation, SortByTemperature}

func ParseSortField(s string) (SortField, bool) {
	f := SortField(strings.ToLower(strings.TrimSpace(s)))
	return f, f.valid()
}

func (f SortField) valid() bool {
	switch f {
	case SortByDate, SortByCategory, SortByLocation, SortByTemperature:
		return true
	default:
		return false
	}
}

type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

func ParseSortOrder(s string) (SortOrder, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending":
		return Ascending, true
	case "desc", "descending":
		return Descending, true
	default:
		return "", false
	}
}

func (o SortOrder) valid() bool {
	return o == Ascending || o == Descending
}

// Sort orders events in place by one field. Equal keys keep their relative
// order in both directions. Missing dates and temperatures always sort last.
// An unknown field sorts by date and an unknown order is ascending.
func Sort(events []types.Event, field SortField, order SortOrder) {
	if !field.valid() {
		field = SortByDate
	}
	desc := order == Descending
	slices.SortStableFunc(events, func(a, b types.Event) int {
		switch field {
		case SortByCategory:
			return directed(strings.Compare(a.Category, b.Category), desc)
		case SortByLocation:
			return directed(strings.Compare(a.Location, b.Location), desc)
		case SortByTemperature:
			return compareMissingLast(a.Temperature.Valid, b.Temperature.Valid, func() int {
				return directed(cmp.Compare(a.Temperature.Value, b.Temperature.Value), desc)
			})
		default:
			return compareMissingLast(a.Date.Valid(), b.Date.Valid(), func() int {
				return directed(a.Date.Day.Compare(b.Date.Day), desc)
			})
		}
	})
}

func directed(c int, desc bool) int {
	if desc {
		return -c
	}
	return c
}

func compareMissingLast(aOK, bOK bool, both func() int) int {
	switch {
	case aOK && bOK:
		return both()
	case aOK:
		return -1
	case bOK:
		return 1
	default:
		return 0
	}
}
