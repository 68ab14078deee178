package ingest

import (
	"context"
	"errors"
	"log/slog"

	"seattle-events/internal/metrics"
	"seattle-events/internal/modules/events/types"
)

const (
	OutcomeStored  = "stored"
	OutcomeInvalid = "invalid"
	OutcomeFailed  = "failed"
)

// Sink stores one decoded event.
type Sink func(ctx context.Context, ev types.Event) error

type Handler struct {
	source  string
	sink    Sink
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewHandler returns a handler for messages from the named source
// ("mqtt", "pubsub").
func NewHandler(source string, sink Sink, m *metrics.Metrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{source: source, sink: sink, metrics: m, logger: logger}
}

// Handle decodes and stores one payload. Invalid payloads return an error
// wrapping ErrInvalid; sink failures are returned as is so the transport can
// redeliver.
func (h *Handler) Handle(ctx context.Context, payload []byte) error {
	rec, err := Decode(payload)
	if err != nil {
		h.metrics.IngestOutcome(h.source, OutcomeInvalid)
		h.logger.Warn("dropping invalid event message",
			"source", h.source,
			"size", len(payload),
			"error", err,
		)
		return err
	}

	if err := h.sink(ctx, rec.Event()); err != nil {
		h.metrics.IngestOutcome(h.source, OutcomeFailed)
		h.logger.Error("failed to store event", "source", h.source, "id", rec.ID, "error", err)
		return err
	}

	h.metrics.IngestOutcome(h.source, OutcomeStored)
	h.logger.Debug("stored event", "source", h.source, "id", rec.ID)
	return nil
}

// Retryable reports whether err from Handle may succeed on redelivery.
func Retryable(err error) bool {
	return err != nil && !errors.Is(err, ErrInvalid)
}
