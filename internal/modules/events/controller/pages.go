package controller

import (
	"bytes"
	"html/template"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"seattle-events/internal/modules/events/pipeline"
	"seattle-events/internal/modules/events/service"
	"seattle-events/internal/modules/events/types"
	"seattle-events/internal/modules/events/views"
	"seattle-events/internal/utils"
)

var sortLabels = map[pipeline.SortField]string{
	pipeline.SortByDate:        "Date",
	pipeline.SortByCategory:    "Category",
	pipeline.SortByLocation:    "Location",
	pipeline.SortByTemperature: "Temperature",
}

func (c *eventsControllerImpl) handleIndex(w http.ResponseWriter, r *http.Request) {
	total, err := c.service.Count(r.Context())
	if err != nil {
		slog.Error("index: count events failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load events")
		return
	}
	settings := c.service.Settings()
	data := &views.IndexData{
		Title:  settings.Title,
		Total:  total,
		Charts: chartLinks(settings),
	}
	writePage(w, "index", func(buf io.Writer) error { return views.RenderIndex(buf, data) })
}

func (c *eventsControllerImpl) handleChart(key pipeline.GroupKey) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chart, err := c.service.Chart(r.Context(), key)
		if err != nil {
			slog.Error("chart: load events failed", "key", key, "error", err)
			utils.WriteError(w, http.StatusInternalServerError, "failed to load events")
			return
		}
		settings := c.service.Settings()
		data := &views.ChartData{
			Title:      settings.Title,
			ChartTitle: chart.Title,
			Total:      chart.Total,
			Bars:       bars(chart),
			Charts:     chartLinks(settings),
		}
		writePage(w, "chart", func(buf io.Writer) error { return views.RenderChart(buf, data) })
	}
}

func (c *eventsControllerImpl) handleExplore(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query(), c.service.DefaultFilter())
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := c.service.Explore(r.Context(), f)
	if err != nil {
		slog.Error("explore: load events failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load events")
		return
	}
	data := exploreData(c.service.Settings(), f, res)
	if r.URL.Query().Get("partial") == "table" {
		writePage(w, "explore partial", func(buf io.Writer) error { return views.RenderEventsPartial(buf, data) })
		return
	}
	writePage(w, "explore", func(buf io.Writer) error { return views.RenderExplore(buf, data) })
}

// writePage renders into a buffer first so a template failure can still be
// answered with a 500.
func writePage(w http.ResponseWriter, name string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		slog.Error(name+" template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	utils.WriteContent(w, http.StatusOK, utils.ContentTypeHTML, buf.Bytes())
}

func chartLinks(settings service.Settings) []views.ChartLink {
	links := make([]views.ChartLink, 0, len(settings.Charts))
	for _, key := range settings.Charts {
		links = append(links, views.ChartLink{Path: chartPath(key), Title: key.Title()})
	}
	return links
}

func bars(chart pipeline.Chart) []views.Bar {
	out := make([]views.Bar, 0, len(chart.Buckets))
	top := 0
	for _, b := range chart.Buckets {
		if b.Count > top {
			top = b.Count
		}
	}
	for _, b := range chart.Buckets {
		out = append(out, views.Bar{
			Label:   b.Key,
			Count:   b.Count,
			Percent: 100 * float64(b.Count) / float64(top),
		})
	}
	return out
}

func exploreData(settings service.Settings, f pipeline.Filter, res pipeline.Result) *views.ExploreData {
	data := &views.ExploreData{
		Title:         settings.Title,
		Warnings:      res.Warnings,
		AllCategories: f.AllCategories,
		Categories:    options(res.Bounds.Categories, f.Categories),
		AllLocations:  f.AllLocations,
		Locations:     options(res.Bounds.Locations, f.Locations),
		AllTemps:      f.AllTemperatures,
		AllDates:      f.AllDates,
		Events:        rows(res.Events),
		Count:         len(res.Events),
		Total:         res.Total,
		Query:         template.URL(encodeFilter(f).Encode()),
	}

	if res.Bounds.HasTemp {
		data.TempLow = formatTemp(math.Floor(res.Bounds.MinTemp))
		// the upper bound is exclusive, so the default must clear the warmest record
		data.TempHigh = formatTemp(math.Floor(res.Bounds.MaxTemp) + 1)
	}
	data.MinTemp, data.MaxTemp = data.TempLow, data.TempHigh
	if !f.AllTemperatures {
		if !math.IsInf(f.MinTemp, 0) {
			data.MinTemp = formatTemp(f.MinTemp)
		}
		if !math.IsInf(f.MaxTemp, 0) {
			data.MaxTemp = formatTemp(f.MaxTemp)
		}
	}

	data.Start = res.DateWindow.Start.Format(dateLayout)
	data.End = res.DateWindow.End.AddDate(0, 0, -1).Format(dateLayout)
	if f.StartDate != nil {
		data.Start = f.StartDate.Format(dateLayout)
	}
	if f.EndDate != nil {
		data.End = f.EndDate.Format(dateLayout)
	}

	for _, field := range pipeline.SortFields {
		data.SortFields = append(data.SortFields, views.Option{
			Value:    string(field),
			Label:    sortLabels[field],
			Selected: field == f.SortField,
		})
	}
	data.Orders = []views.Option{
		{Value: string(pipeline.Ascending), Label: "Ascending", Selected: f.SortOrder != pipeline.Descending},
		{Value: string(pipeline.Descending), Label: "Descending", Selected: f.SortOrder == pipeline.Descending},
	}
	return data
}

func options(all, selected []string) []views.Option {
	chosen := make(map[string]bool, len(selected))
	for _, s := range selected {
		chosen[s] = true
	}
	out := make([]views.Option, 0, len(all))
	for _, v := range all {
		out = append(out, views.Option{Value: v, Label: v, Selected: chosen[v]})
	}
	return out
}

func rows(events []types.Event) []views.EventRow {
	out := make([]views.EventRow, 0, len(events))
	for _, ev := range events {
		out = append(out, views.EventRow{
			ID:          ev.ID,
			Name:        ev.Name,
			Date:        displayDate(ev.Date),
			Category:    ev.Category,
			Location:    ev.Location,
			Region:      ev.Region,
			Temperature: ev.Temperature.String(),
			Weather:     ev.WeatherDescription,
		})
	}
	return out
}

// displayDate falls back to the stored text for dates that did not parse.
func displayDate(d types.EventDate) string {
	if d.Valid() {
		return d.String()
	}
	return d.Raw
}

func formatTemp(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
