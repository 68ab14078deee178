package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"seattle-events/internal/config"
	"seattle-events/internal/metrics"
	"seattle-events/internal/modules/events/pipeline"
	"seattle-events/internal/modules/events/repository"
	"seattle-events/internal/modules/events/types"
)

// Settings are the validated dashboard presentation settings.
type Settings struct {
	Title            string
	DefaultSort      pipeline.SortField
	DefaultOrder     pipeline.SortOrder
	DateWindowMonths int
	Charts           []pipeline.GroupKey
}

func NewSettings(d config.Dashboard) (Settings, error) {
	field, ok := pipeline.ParseSortField(d.DefaultSort)
	if !ok {
		return Settings{}, fmt.Errorf("invalid default_sort %q (allowed: date, category, location, temperature)", d.DefaultSort)
	}
	order, ok := pipeline.ParseSortOrder(d.DefaultOrder)
	if !ok {
		return Settings{}, fmt.Errorf("invalid default_order %q (allowed: asc, desc)", d.DefaultOrder)
	}
	charts := make([]pipeline.GroupKey, 0, len(d.Charts))
	seen := make(map[pipeline.GroupKey]bool)
	for _, c := range d.Charts {
		key, ok := pipeline.ParseGroupKey(c)
		if !ok {
			return Settings{}, fmt.Errorf("invalid chart %q (allowed: category, month, weekday, location)", c)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		charts = append(charts, key)
	}
	if len(charts) == 0 {
		charts = pipeline.GroupKeys
	}
	months := d.DateWindowMonths
	if months <= 0 {
		months = pipeline.DateWindowMonths
	}
	return Settings{
		Title:            d.Title,
		DefaultSort:      field,
		DefaultOrder:     order,
		DateWindowMonths: months,
		Charts:           charts,
	}, nil
}

// Service loads a fresh snapshot per call and runs the pure pipeline on it.
type Service struct {
	repository repository.EventRepository
	settings   Settings
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewService(repository repository.EventRepository, settings Settings, m *metrics.Metrics) *Service {
	return &Service{repository: repository, settings: settings, metrics: m, now: time.Now}
}

func (s *Service) Settings() Settings {
	return s.settings
}

// DefaultFilter is the all-modes filter with the configured sort.
func (s *Service) DefaultFilter() pipeline.Filter {
	f := pipeline.DefaultFilter()
	f.SortField = s.settings.DefaultSort
	f.SortOrder = s.settings.DefaultOrder
	return f
}

func (s *Service) Explore(ctx context.Context, f pipeline.Filter) (pipeline.Result, error) {
	events, err := s.repository.ListEvents(ctx)
	if err != nil {
		return pipeline.Result{}, err
	}
	now := s.now()
	res := pipeline.Run(events, f, now)
	res.DateWindow = pipeline.NewDateWindow(now, s.settings.DateWindowMonths)
	s.metrics.ObserveFilter(len(res.Events), len(res.Warnings))
	return res, nil
}

// Charts aggregates the configured charts from one snapshot.
func (s *Service) Charts(ctx context.Context) ([]pipeline.Chart, error) {
	events, err := s.repository.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	charts := make([]pipeline.Chart, 0, len(s.settings.Charts))
	for _, key := range s.settings.Charts {
		charts = append(charts, pipeline.AggregateChart(events, key))
	}
	s.metrics.ObserveAggregate()
	return charts, nil
}

func (s *Service) Chart(ctx context.Context, key pipeline.GroupKey) (pipeline.Chart, error) {
	events, err := s.repository.ListEvents(ctx)
	if err != nil {
		return pipeline.Chart{}, err
	}
	s.metrics.ObserveAggregate()
	return pipeline.AggregateChart(events, key), nil
}

// Aggregates returns every grouping, regardless of the configured charts.
func (s *Service) Aggregates(ctx context.Context) ([]pipeline.Chart, error) {
	events, err := s.repository.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveAggregate()
	return pipeline.AggregateAll(events), nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repository.CountEvents(ctx)
}

func (s *Service) Event(ctx context.Context, id int64) (types.Event, error) {
	return s.repository.GetEvent(ctx, id)
}

// Ingest stores one event received from a message source.
func (s *Service) Ingest(ctx context.Context, ev types.Event) error {
	if err := s.repository.UpsertEvent(ctx, ev); err != nil {
		return err
	}
	slog.Debug("event stored", "id", ev.ID, "name", ev.Name)
	return nil
}
