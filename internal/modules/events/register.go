package events

import (
	"database/sql"
	"net/http"

	"seattle-events/internal/config"
	"seattle-events/internal/metrics"
	"seattle-events/internal/modules/events/controller"
	"seattle-events/internal/modules/events/repository"
	"seattle-events/internal/modules/events/service"
)

// RegisterFeature mounts the dashboard routes and returns the service so the
// caller can attach an ingest source to it.
func RegisterFeature(mux *http.ServeMux, db *sql.DB, cfg config.Config, m *metrics.Metrics) (*service.Service, error) {
	settings, err := service.NewSettings(cfg.Dashboard)
	if err != nil {
		return nil, err
	}
	eventsRepository := repository.NewRepository(db, cfg.Driver)
	eventsService := service.NewService(eventsRepository, settings, m)
	eventsController := controller.NewEventsController(eventsService)
	eventsController.RegisterRoutes(mux)
	return eventsService, nil
}
