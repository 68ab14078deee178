package pipeline

import (
	"reflect"
	"testing"

	"seattle-events/internal/modules/events/types"
)

func sortFixture() []types.Event {
	return []types.Event{
		ev(1, "Music", "Pike Place", "2024-03-01", types.Known(50)),
		ev(2, "Art", "Ballard", "TBD", types.Known(61)),
		ev(3, "Music", "Ballard", "2024-02-01", types.Measurement{}),
		ev(4, "Art", "SoDo", "2024-03-01", types.Known(50)),
		ev(5, "Food", "Pike Place", "2024-01-15", types.Known(42)),
	}
}

func TestSort(t *testing.T) {
	tests := []struct {
		field SortField
		order SortOrder
		want  []int64
	}{
		{SortByDate, Ascending, []int64{5, 3, 1, 4, 2}},
		{SortByDate, Descending, []int64{1, 4, 3, 5, 2}},
		{SortByCategory, Ascending, []int64{2, 4, 5, 1, 3}},
		{SortByCategory, Descending, []int64{1, 3, 5, 2, 4}},
		{SortByLocation, Ascending, []int64{2, 3, 1, 5, 4}},
		{SortByLocation, Descending, []int64{4, 1, 5, 2, 3}},
		{SortByTemperature, Ascending, []int64{5, 1, 4, 2, 3}},
		{SortByTemperature, Descending, []int64{2, 1, 4, 5, 3}},
	}
	for _, tt := range tests {
		t.Run(string(tt.field)+"/"+string(tt.order), func(t *testing.T) {
			events := sortFixture()
			Sort(events, tt.field, tt.order)
			if got := ids(events); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Sort(%s, %s) = %v; want %v", tt.field, tt.order, got, tt.want)
			}
		})
	}
}

func TestSort_unknownFieldFallsBackToDate(t *testing.T) {
	a := sortFixture()
	b := sortFixture()
	Sort(a, SortField("humidity"), Ascending)
	Sort(b, SortByDate, Ascending)
	if !reflect.DeepEqual(ids(a), ids(b)) {
		t.Errorf("unknown field = %v; want date order %v", ids(a), ids(b))
	}
}

func TestParseSortField(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want SortField
		ok   bool
	}{
		{"date", SortByDate, true},
		{" Temperature ", SortByTemperature, true},
		{"location", SortByLocation, true},
		{"humidity", "", false},
	} {
		got, ok := ParseSortField(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParseSortField(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseSortOrder(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want SortOrder
		ok   bool
	}{
		{"asc", Ascending, true},
		{"Descending", Descending, true},
		{"DESC", Descending, true},
		{"up", "", false},
	} {
		got, ok := ParseSortOrder(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseSortOrder(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
