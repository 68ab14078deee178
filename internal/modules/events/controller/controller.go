package controller

import (
	"net/http"

	"seattle-events/internal/modules/events/pipeline"
	"seattle-events/internal/modules/events/service"
)

type EventsController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type eventsControllerImpl struct {
	service *service.Service
}

func NewEventsController(service *service.Service) EventsController {
	return &eventsControllerImpl{service: service}
}

func (c *eventsControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", c.handleIndex)
	mux.HandleFunc("GET /category", c.handleChart(pipeline.ByCategory))
	mux.HandleFunc("GET /month", c.handleChart(pipeline.ByMonth))
	mux.HandleFunc("GET /day", c.handleChart(pipeline.ByWeekday))
	mux.HandleFunc("GET /location", c.handleChart(pipeline.ByLocation))
	mux.HandleFunc("GET /explore", c.handleExplore)

	mux.HandleFunc("GET /api/v1/events", c.handleEvents)
	mux.HandleFunc("GET /api/v1/events/{id}", c.handleEvent)
	mux.HandleFunc("GET /api/v1/aggregates", c.handleAggregates)
	mux.HandleFunc("GET /api/v1/aggregates/{key}", c.handleAggregate)

	mux.HandleFunc("GET /export/events.ics", c.handleExportICS)
	mux.HandleFunc("GET /export/events.csv", c.handleExportCSV)
}

// chartPath is the page route of a grouping key.
func chartPath(key pipeline.GroupKey) string {
	if key == pipeline.ByWeekday {
		return "/day"
	}
	return "/" + string(key)
}
