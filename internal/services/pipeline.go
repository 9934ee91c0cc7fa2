package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"digisale-dash/internal/kpi"
	"digisale-dash/internal/loader"
	"digisale-dash/internal/merge"
	"digisale-dash/internal/models"
	"digisale-dash/internal/observability"
	"digisale-dash/internal/schema"
)

const StageMerge = "merge"

// StageError tags a pipeline failure with the stage that produced it, e.g.
// "load:orders" or "merge".
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Stage returns the stage label of err, or fallback when err carries none.
func Stage(err error, fallback string) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return fallback
}

func loadStage(kind schema.Kind) string {
	return "load:" + string(kind)
}

// Inputs are the three uploads of one snapshot.
type Inputs struct {
	Orders    loader.Source
	Customers loader.Source
	Products  loader.Source
}

func (in Inputs) source(kind schema.Kind) (loader.Source, bool) {
	switch kind {
	case schema.Orders:
		return in.Orders, true
	case schema.Customers:
		return in.Customers, true
	case schema.Products:
		return in.Products, true
	}
	return loader.Source{}, false
}

// OpenInputs opens the three files as Inputs. The returned function closes
// them.
func OpenInputs(orders, customers, products string) (Inputs, func(), error) {
	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}

	var in Inputs
	for _, target := range []struct {
		path string
		dst  *loader.Source
	}{
		{orders, &in.Orders},
		{customers, &in.Customers},
		{products, &in.Products},
	} {
		src, f, err := loader.OpenFile(target.path)
		if err != nil {
			closeAll()
			return Inputs{}, func() {}, err
		}
		files = append(files, f)
		*target.dst = src
	}
	return in, closeAll, nil
}

// Snapshot is the result of one successful pipeline run.
type Snapshot struct {
	RunID     string                 `json:"run_id"`
	LoadedAt  time.Time              `json:"loaded_at"`
	Sources   map[schema.Kind]string `json:"sources"`
	Customers int                    `json:"customers"`
	Products  int                    `json:"products"`
	Records   []models.MergedRecord  `json:"-"`
	Baseline  models.KPISnapshot     `json:"baseline"`
}

// Pipeline loads, merges and aggregates one snapshot. It keeps no state
// between runs.
type Pipeline struct {
	registry *schema.Registry
	statuses *loader.StatusMap
	logger   *slog.Logger
}

func NewPipeline(registry *schema.Registry, statuses *loader.StatusMap, logger *slog.Logger) *Pipeline {
	if registry == nil {
		registry = schema.Default()
	}
	if statuses == nil {
		statuses = loader.DefaultStatusMap()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{registry: registry, statuses: statuses, logger: logger}
}

// Run loads the three datasets in parallel, then joins orders→customers→
// products and computes the baseline KPIs. Any failure aborts the run and is
// returned as a *StageError.
func (p *Pipeline) Run(ctx context.Context, in Inputs) (*Snapshot, error) {
	runID := uuid.NewString()
	ctx = observability.WithRunID(ctx, runID)
	logger := observability.LoggerFrom(ctx, p.logger)
	ctx, span := observability.StartSpan(ctx, "pipeline.run")
	defer span.Finish()
	span.SetTag("run_id", runID)

	start := time.Now()
	logger.Info("pipeline run started",
		"orders", in.Orders.Name,
		"customers", in.Customers.Name,
		"products", in.Products.Name,
	)

	var (
		orders    []models.Order
		customers []models.Customer
		products  []models.Product
	)

	kinds := p.registry.Kinds()
	sources := make(map[schema.Kind]string, len(kinds))
	for _, kind := range kinds {
		src, ok := in.source(kind)
		if !ok {
			err := stageErr(loadStage(kind), fmt.Errorf("no input for dataset kind %q", kind))
			span.SetError(err)
			return nil, err
		}
		sources[kind] = src.Name
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range kinds {
		src, _ := in.source(kind)
		g.Go(func() error {
			t, err := p.load(gctx, kind, src)
			if err != nil {
				return err
			}
			switch kind {
			case schema.Orders:
				orders, err = loader.DecodeOrders(t, p.statuses)
			case schema.Customers:
				customers, err = loader.DecodeCustomers(t)
			case schema.Products:
				products, err = loader.DecodeProducts(t)
			}
			return stageErr(loadStage(kind), err)
		})
	}
	if err := g.Wait(); err != nil {
		span.SetError(err)
		logger.Warn("pipeline load failed", "stage", Stage(err, "load"), "error", err)
		return nil, err
	}

	merged, err := merge.Merge(orders, customers, products)
	if err != nil {
		err = &StageError{Stage: StageMerge, Err: err}
		span.SetError(err)
		logger.Warn("pipeline merge failed", "error", err)
		return nil, err
	}

	snap := &Snapshot{
		RunID:     runID,
		LoadedAt:  time.Now().UTC(),
		Sources:   sources,
		Customers: len(customers),
		Products:  len(products),
		Records:   merged,
		Baseline:  kpi.Aggregate(merged),
	}

	logger.Info("pipeline run complete",
		"orders", len(orders),
		"customers", len(customers),
		"products", len(products),
		"completed_orders", snap.Baseline.CompletedOrders,
		"cancellation_rate", snap.Baseline.CancellationRate,
		"duration", time.Since(start),
	)
	return snap, nil
}

func (p *Pipeline) load(ctx context.Context, kind schema.Kind, src loader.Source) (*loader.Table, error) {
	_, span := observability.StartSpan(ctx, loadStage(kind))
	defer span.Finish()

	required, err := p.registry.Required(kind)
	if err != nil {
		return nil, stageErr(loadStage(kind), err)
	}
	t, err := loader.Load(ctx, src, required)
	if err != nil {
		span.SetError(err)
		return nil, stageErr(loadStage(kind), err)
	}
	span.SetTag("rows", fmt.Sprint(t.Len()))
	observability.LoggerFrom(ctx, p.logger).Debug("dataset loaded", "kind", kind, "source", src.Name, "rows", t.Len(), "columns", len(t.Columns))
	return t, nil
}

func stageErr(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}
