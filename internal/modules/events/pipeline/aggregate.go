package pipeline

import (
	"cmp"
	"slices"
	"strings"

	"seattle-events/internal/modules/events/types"
)

type GroupKey string

// monthKeyLayout keeps the year so March 2023 and March 2024 are separate
// buckets.
const monthKeyLayout = "January 2006"

const (
	ByCategory GroupKey = "category"
	ByMonth    GroupKey = "month"
	ByWeekday  GroupKey = "weekday"
	ByLocation GroupKey = "location"
)

// GroupKeys is the chart order used by the dashboard and the API.
var GroupKeys = []GroupKey{ByCategory, ByMonth, ByWeekday, ByLocation}

// ParseGroupKey maps a route segment to a grouping key. "day" is kept as an
// alias of weekday for the /day chart.
func ParseGroupKey(s string) (GroupKey, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "category", "type":
		return ByCategory, true
	case "month":
		return ByMonth, true
	case "weekday", "day":
		return ByWeekday, true
	case "location":
		return ByLocation, true
	default:
		return "", false
	}
}

func (k GroupKey) Title() string {
	switch k {
	case ByCategory:
		return "Events by category"
	case ByMonth:
		return "Events by month"
	case ByWeekday:
		return "Events by day of the week"
	case ByLocation:
		return "Events by location"
	default:
		return string(k)
	}
}

type Bucket struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type Chart struct {
	Key     GroupKey `json:"key"`
	Title   string   `json:"title"`
	Buckets []Bucket `json:"buckets"`
	Total   int      `json:"total"`
}

// keyOf returns the grouping value of ev and false when it is absent.
func keyOf(ev types.Event, key GroupKey) (string, bool) {
	switch key {
	case ByCategory:
		return present(ev.Category)
	case ByLocation:
		return present(ev.Location)
	case ByMonth:
		if !ev.Date.Valid() {
			return "", false
		}
		return ev.Date.Day.Format(monthKeyLayout), true
	case ByWeekday:
		if !ev.Date.Valid() {
			return "", false
		}
		return ev.Date.Day.Weekday().String(), true
	default:
		return "", false
	}
}

func present(s string) (string, bool) {
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// Aggregate counts events per distinct key value. Buckets are ordered by
// descending count; equal counts keep the order the keys were first seen.
func Aggregate(events []types.Event, key GroupKey) []Bucket {
	index := make(map[string]int)
	buckets := make([]Bucket, 0)
	for _, ev := range events {
		v, ok := keyOf(ev, key)
		if !ok {
			continue
		}
		if i, seen := index[v]; seen {
			buckets[i].Count++
			continue
		}
		index[v] = len(buckets)
		buckets = append(buckets, Bucket{Key: v, Count: 1})
	}
	slices.SortStableFunc(buckets, func(a, b Bucket) int {
		return cmp.Compare(b.Count, a.Count)
	})
	return buckets
}

func AggregateChart(events []types.Event, key GroupKey) Chart {
	buckets := Aggregate(events, key)
	total := 0
	for _, b := range buckets {
		total += b.Count
	}
	return Chart{Key: key, Title: key.Title(), Buckets: buckets, Total: total}
}

func AggregateAll(events []types.Event) []Chart {
	charts := make([]Chart, 0, len(GroupKeys))
	for _, k := range GroupKeys {
		charts = append(charts, AggregateChart(events, k))
	}
	return charts
}
