package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"digisale-dash/internal/filter"
	"digisale-dash/internal/kpi"
	"digisale-dash/internal/merge"
	"digisale-dash/internal/models"
)

var ErrNoSnapshot = errors.New("no snapshot loaded")

// ErrorSink receives failures with the stage that produced them.
type ErrorSink interface {
	LogError(stage string, err error) error
}

// Session holds the last successfully computed snapshot between requests.
// A failed refresh leaves the previous snapshot in place.
type Session struct {
	mu       sync.RWMutex
	current  *Snapshot
	pipeline *Pipeline
	sink     ErrorSink
	logger   *slog.Logger
	failures int
}

func NewSession(pipeline *Pipeline, sink ErrorSink, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{pipeline: pipeline, sink: sink, logger: logger}
}

// Refresh runs the pipeline over in and, on success, replaces the held
// snapshot. Failures are reported to the error sink under their stage.
func (s *Session) Refresh(ctx context.Context, in Inputs) (*Snapshot, error) {
	snap, err := s.pipeline.Run(ctx, in)
	if err != nil {
		s.ReportError(Stage(err, "pipeline"), err)
		return nil, err
	}

	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()
	return snap, nil
}

// ReportError forwards err to the error sink.
func (s *Session) ReportError(stage string, err error) {
	s.mu.Lock()
	s.failures++
	s.mu.Unlock()

	if s.sink == nil {
		return
	}
	if logErr := s.sink.LogError(stage, err); logErr != nil {
		s.logger.Error("failed to write error log", "error", logErr, "stage", stage)
	}
}

// SetSnapshot installs snap directly.
func (s *Session) SetSnapshot(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = snap
}

func (s *Session) Current() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ErrNoSnapshot
	}
	return s.current, nil
}

// KPIs returns the baseline KPIs for value filter.All, otherwise the KPIs of
// the rows whose dimension equals value.
func (s *Session) KPIs(dimension, value string) (models.KPISnapshot, error) {
	snap, err := s.Current()
	if err != nil {
		return models.KPISnapshot{}, err
	}
	if value == filter.All || value == "" {
		return snap.Baseline, nil
	}
	return kpi.Aggregate(filter.Apply(snap.Records, dimension, value)), nil
}

func (s *Session) DimensionValues(dimension string) ([]string, error) {
	snap, err := s.Current()
	if err != nil {
		return nil, err
	}
	return filter.Values(snap.Records, dimension), nil
}

// RevenueBy groups completed revenue by column, optionally within one
// dimension value.
func (s *Session) RevenueBy(column, dimension, value string) ([]models.RevenueGroup, error) {
	snap, err := s.Current()
	if err != nil {
		return nil, err
	}
	records := snap.Records
	if value != "" {
		records = filter.Apply(records, dimension, value)
	}
	return kpi.RevenueBy(records, column), nil
}

// Records returns up to limit merged records and the merged column list.
// A limit of zero or less returns all records.
func (s *Session) Records(limit int) ([]models.MergedRecord, []string, error) {
	snap, err := s.Current()
	if err != nil {
		return nil, nil, err
	}
	records := snap.Records
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, merge.Columns(snap.Records), nil
}

func (s *Session) Stats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"loaded":   s.current != nil,
		"failures": s.failures,
	}
	if s.current != nil {
		stats["run_id"] = s.current.RunID
		stats["loaded_at"] = s.current.LoadedAt
		stats["orders"] = len(s.current.Records)
		stats["customers"] = s.current.Customers
		stats["products"] = s.current.Products
		stats["sources"] = s.current.Sources
	}
	return stats
}
