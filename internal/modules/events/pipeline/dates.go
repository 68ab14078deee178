// Package pipeline derives chart aggregates and filtered, sorted views from a
// snapshot of event records. Everything here is pure: the same snapshot and
// filter always produce the same result and nothing is persisted.
package pipeline

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"seattle-events/internal/modules/events/types"
)

const nowThroughMarker = "Now through"

// ParseEventDate resolves the free-text event_date column once, at load time.
// "Now through <date>" becomes a range ending on <date>; anything that does
// not parse is absent rather than an error.
func ParseEventDate(raw string) types.EventDate {
	s := strings.TrimSpace(raw)
	kind := types.DatePlain
	if i := strings.Index(s, nowThroughMarker); i >= 0 {
		s = strings.TrimSpace(s[i+len(nowThroughMarker):])
		kind = types.DateRange
	}
	day, ok := parseDay(s)
	if !ok {
		return types.EventDate{Raw: raw, Kind: types.DateAbsent}
	}
	return types.EventDate{Raw: raw, Kind: kind, Day: day}
}

func parseDay(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return truncateDay(t), true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
