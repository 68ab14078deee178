package controller

import (
	"errors"
	"log/slog"
	"net/http"

	"seattle-events/internal/modules/events/pipeline"
	"seattle-events/internal/modules/events/repository"
	"seattle-events/internal/modules/events/types"
	"seattle-events/internal/utils"
)

type eventsResponse struct {
	Events   []types.Event `json:"events"`
	Warnings []string      `json:"warnings"`
	Count    int           `json:"count"`
}

func (c *eventsControllerImpl) handleEvents(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query(), c.service.DefaultFilter())
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := c.service.Explore(r.Context(), f)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, eventsResponse{
		Events:   res.Events,
		Warnings: res.Warnings,
		Count:    len(res.Events),
	})
}

func (c *eventsControllerImpl) handleEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseEventID(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	ev, err := c.service.Event(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		utils.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		slog.Error("get event failed", "id", id, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, ev)
}

func (c *eventsControllerImpl) handleAggregates(w http.ResponseWriter, r *http.Request) {
	charts, err := c.service.Aggregates(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, charts)
}

func (c *eventsControllerImpl) handleAggregate(w http.ResponseWriter, r *http.Request) {
	key, ok := pipeline.ParseGroupKey(r.PathValue("key"))
	if !ok {
		utils.WriteError(w, http.StatusNotFound, "unknown grouping (expected category, month, weekday or location)")
		return
	}
	chart, err := c.service.Chart(r.Context(), key)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, chart)
}
