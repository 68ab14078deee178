package controller

import (
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"seattle-events/internal/modules/events/pipeline"
)

const dateLayout = "2006-01-02"

// parseFilter builds a filter from the explorer query parameters. A request
// without parameters yields base unchanged. For each dimension the explicit
// all_* flag wins; without it the dimension is restricted only when
// selections for it are present.
func parseFilter(q url.Values, base pipeline.Filter) (pipeline.Filter, error) {
	f := base

	// clear discards the other selections unparsed; only a valid sort
	// survives it.
	if reset, err := flag(q, "clear", false); err != nil {
		return pipeline.Filter{}, err
	} else if reset {
		if err := parseSort(q, &f); err != nil {
			f.SortField, f.SortOrder = base.SortField, base.SortOrder
		}
		return pipeline.Clear(f), nil
	}

	all, err := flag(q, "all_categories", len(q["category"]) == 0)
	if err != nil {
		return pipeline.Filter{}, err
	}
	f.AllCategories = all
	f.Categories = values(q, "category")

	all, err = flag(q, "all_locations", len(q["location"]) == 0)
	if err != nil {
		return pipeline.Filter{}, err
	}
	f.AllLocations = all
	f.Locations = values(q, "location")

	minTemp, hasMin, err := number(q, "min_temp")
	if err != nil {
		return pipeline.Filter{}, err
	}
	maxTemp, hasMax, err := number(q, "max_temp")
	if err != nil {
		return pipeline.Filter{}, err
	}
	all, err = flag(q, "all_temps", !hasMin && !hasMax)
	if err != nil {
		return pipeline.Filter{}, err
	}
	f.AllTemperatures = all
	f.MinTemp, f.MaxTemp = math.Inf(-1), math.Inf(1)
	if hasMin {
		f.MinTemp = minTemp
	}
	if hasMax {
		f.MaxTemp = maxTemp
	}
	if !f.AllTemperatures && hasMin && hasMax && minTemp > maxTemp {
		return pipeline.Filter{}, errors.New("'min_temp' must be <= 'max_temp'")
	}

	start, err := date(q, "start")
	if err != nil {
		return pipeline.Filter{}, err
	}
	end, err := date(q, "end")
	if err != nil {
		return pipeline.Filter{}, err
	}
	all, err = flag(q, "all_dates", start == nil && end == nil)
	if err != nil {
		return pipeline.Filter{}, err
	}
	f.AllDates = all
	f.StartDate, f.EndDate = start, end

	if err := parseSort(q, &f); err != nil {
		return pipeline.Filter{}, err
	}
	return f, nil
}

// parseSort applies the sort and order parameters to f.
func parseSort(q url.Values, f *pipeline.Filter) error {
	if s := last(q, "sort"); s != "" {
		field, ok := pipeline.ParseSortField(s)
		if !ok {
			return errors.New("invalid 'sort' (expected date, category, location or temperature)")
		}
		f.SortField = field
	}
	if s := last(q, "order"); s != "" {
		order, ok := pipeline.ParseSortOrder(s)
		if !ok {
			return errors.New("invalid 'order' (expected asc or desc)")
		}
		f.SortOrder = order
	}
	return nil
}

// encodeFilter is the inverse of parseFilter for the non-default parts of f.
func encodeFilter(f pipeline.Filter) url.Values {
	q := url.Values{}
	if !f.AllCategories {
		q.Set("all_categories", "0")
		q["category"] = append([]string(nil), f.Categories...)
	}
	if !f.AllLocations {
		q.Set("all_locations", "0")
		q["location"] = append([]string(nil), f.Locations...)
	}
	if !f.AllTemperatures {
		q.Set("all_temps", "0")
		if !math.IsInf(f.MinTemp, 0) {
			q.Set("min_temp", strconv.FormatFloat(f.MinTemp, 'f', -1, 64))
		}
		if !math.IsInf(f.MaxTemp, 0) {
			q.Set("max_temp", strconv.FormatFloat(f.MaxTemp, 'f', -1, 64))
		}
	}
	if !f.AllDates {
		q.Set("all_dates", "0")
		if f.StartDate != nil {
			q.Set("start", f.StartDate.Format(dateLayout))
		}
		if f.EndDate != nil {
			q.Set("end", f.EndDate.Format(dateLayout))
		}
	}
	q.Set("sort", string(f.SortField))
	q.Set("order", string(f.SortOrder))
	return q
}

// last returns the final value of key. Forms send a hidden "0" ahead of the
// checkbox, so the last value is the effective one.
func last(q url.Values, key string) string {
	vs := q[key]
	if len(vs) == 0 {
		return ""
	}
	return strings.TrimSpace(vs[len(vs)-1])
}

func values(q url.Values, key string) []string {
	out := make([]string, 0, len(q[key]))
	for _, v := range q[key] {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func flag(q url.Values, key string, def bool) (bool, error) {
	s := last(q, key)
	if s == "" {
		return def, nil
	}
	if strings.EqualFold(s, "on") {
		return true, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, errors.New("invalid '" + key + "' (expected boolean)")
	}
	return b, nil
}

func number(q url.Values, key string) (float64, bool, error) {
	s := last(q, key)
	if s == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, errors.New("invalid '" + key + "' (expected number)")
	}
	return v, true, nil
}

func date(q url.Values, key string) (*time.Time, error) {
	s := last(q, key)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, errors.New("invalid '" + key + "' (expected YYYY-MM-DD)")
	}
	return &t, nil
}

// parseEventID reads the {id} path value.
func parseEventID(r *http.Request) (int64, error) {
	s := r.PathValue("id")
	if s == "" {
		return 0, errors.New("missing event id")
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid event id (expected positive integer)")
	}
	return id, nil
}
