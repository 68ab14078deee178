package controller

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"seattle-events/internal/modules/events/types"
	"seattle-events/internal/utils"
)

const icsProductID = "-//seattle-events//events dashboard//EN"

var icsEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\r\n", `\n`, "\n", `\n`)

func (c *eventsControllerImpl) handleExportICS(w http.ResponseWriter, r *http.Request) {
	events, ok := c.exportEvents(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	writeICS(&buf, c.service.Settings().Title, events, time.Now().UTC())

	w.Header().Set("Content-Disposition", "attachment; filename=events.ics")
	utils.WriteContent(w, http.StatusOK, utils.ContentTypeCalendar, buf.Bytes())
}

func (c *eventsControllerImpl) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	events, ok := c.exportEvents(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := writeCSV(&buf, events); err != nil {
		slog.Error("export csv failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to generate csv")
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=events.csv")
	utils.WriteContent(w, http.StatusOK, utils.ContentTypeCSV, buf.Bytes())
}

// exportEvents runs the explorer query of r and writes the error response
// itself when that fails.
func (c *eventsControllerImpl) exportEvents(w http.ResponseWriter, r *http.Request) ([]types.Event, bool) {
	f, err := parseFilter(r.URL.Query(), c.service.DefaultFilter())
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	res, err := c.service.Explore(r.Context(), f)
	if err != nil {
		slog.Error("export: load events failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load events")
		return nil, false
	}
	return res.Events, true
}

// writeICS writes one all-day VEVENT per dated event. Undated events are
// skipped.
func writeICS(w io.Writer, calName string, events []types.Event, stamp time.Time) {
	line := func(format string, args ...any) {
		fmt.Fprintf(w, format+"\r\n", args...)
	}
	line("BEGIN:VCALENDAR")
	line("VERSION:2.0")
	line("PRODID:%s", icsProductID)
	line("X-WR-CALNAME:%s", icsEscaper.Replace(calName))
	line("CALSCALE:GREGORIAN")
	for _, ev := range events {
		if !ev.Date.Valid() {
			continue
		}
		day := ev.Date.Day
		line("BEGIN:VEVENT")
		line("UID:event-%d@seattle-events", ev.ID)
		line("DTSTAMP:%s", stamp.Format("20060102T150405Z"))
		line("DTSTART;VALUE=DATE:%s", day.Format("20060102"))
		line("DTEND;VALUE=DATE:%s", day.AddDate(0, 0, 1).Format("20060102"))
		line("SUMMARY:%s", icsEscaper.Replace(ev.Name))
		if ev.Description != "" {
			line("DESCRIPTION:%s", icsEscaper.Replace(ev.Description))
		}
		if ev.Location != "" {
			line("LOCATION:%s", icsEscaper.Replace(ev.Location))
		}
		if ev.Category != "" {
			line("CATEGORIES:%s", icsEscaper.Replace(ev.Category))
		}
		if ev.Latitude != 0 || ev.Longitude != 0 {
			line("GEO:%s;%s", strconv.FormatFloat(ev.Latitude, 'f', -1, 64), strconv.FormatFloat(ev.Longitude, 'f', -1, 64))
		}
		line("END:VEVENT")
	}
	line("END:VCALENDAR")
}

var csvHeader = []string{
	"id", "name", "date", "category", "location", "region",
	"temperature", "min_temperature", "max_temperature", "humidity", "weather_description",
}

func writeCSV(w io.Writer, events []types.Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, ev := range events {
		humidity := ""
		if ev.Humidity != nil {
			humidity = strconv.Itoa(*ev.Humidity)
		}
		record := []string{
			strconv.FormatInt(ev.ID, 10),
			ev.Name,
			displayDate(ev.Date),
			ev.Category,
			ev.Location,
			ev.Region,
			ev.Temperature.String(),
			ev.MinTemperature.String(),
			ev.MaxTemperature.String(),
			humidity,
			ev.WeatherDescription,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
