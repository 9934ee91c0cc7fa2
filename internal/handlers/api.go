package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"digisale-dash/internal/errors"
	"digisale-dash/internal/filter"
	"digisale-dash/internal/loader"
	"digisale-dash/internal/models"
	"digisale-dash/internal/observability"
	"digisale-dash/internal/schema"
	"digisale-dash/internal/services"
)

const (
	stageUpload    = "upload"
	refreshTimeout = 60 * time.Second
	cacheShort     = "private, max-age=30"
)

// Options tune request handling.
type Options struct {
	MaxUploadBytes   int64
	DefaultDimension string
	Recorder         *observability.Recorder
}

func (o Options) withDefaults() Options {
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = 32 << 20
	}
	if o.DefaultDimension == "" {
		o.DefaultDimension = schema.ColCity
	}
	return o
}

type APIHandlers struct {
	session *services.Session
	logger  *slog.Logger
	opts    Options
}

func NewAPIHandlers(session *services.Session, logger *slog.Logger, opts Options) *APIHandlers {
	return &APIHandlers{
		session: session,
		logger:  logger,
		opts:    opts.withDefaults(),
	}
}

// HandleSnapshot accepts a multipart upload with one file per dataset
// (fields "orders", "customers" and "products") and replaces the current
// snapshot when all three load and merge cleanly.
func (h *APIHandlers) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	if err := r.ParseMultipartForm(h.opts.MaxUploadBytes); err != nil {
		h.session.ReportError(stageUpload, err)
		errors.WriteError(w, h.logger, h.uploadError(err), requestID)
		return
	}
	defer r.MultipartForm.RemoveAll()

	in, closeAll, err := formInputs(r)
	if err != nil {
		h.session.ReportError(stageUpload, err)
		errors.WriteError(w, h.logger, h.uploadError(err), requestID)
		return
	}
	defer closeAll()

	ctx, cancel := context.WithTimeout(r.Context(), refreshTimeout)
	defer cancel()

	snap, err := h.session.Refresh(ctx, in)
	if err != nil {
		errors.WriteError(w, h.logger, errors.FromPipeline(err), requestID)
		return
	}
	errors.WriteSuccess(w, snap)
}

func (h *APIHandlers) uploadError(err error) *errors.AppError {
	appErr := errors.FromPipeline(err)
	if appErr.Code == errors.CodeInternal {
		appErr = errors.BadRequestWrap(err, "Invalid upload").WithDetails(err.Error())
	}
	appErr.Stage = stageUpload
	return appErr
}

func formInputs(r *http.Request) (services.Inputs, func(), error) {
	var files []multipart.File
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}

	var in services.Inputs
	for _, field := range []struct {
		kind schema.Kind
		dst  *loader.Source
	}{
		{schema.Orders, &in.Orders},
		{schema.Customers, &in.Customers},
		{schema.Products, &in.Products},
	} {
		f, header, err := r.FormFile(string(field.kind))
		if err != nil {
			closeAll()
			return services.Inputs{}, func() {}, fmt.Errorf("missing %s file: %w", field.kind, err)
		}
		files = append(files, f)
		*field.dst = loader.Source{
			Name:   header.Filename,
			Format: r.FormValue(string(field.kind) + "_format"),
			Reader: f,
		}
	}
	return in, closeAll, nil
}

// KPIResponse is the filtered KPI view.
type KPIResponse struct {
	Dimension string             `json:"dimension"`
	Value     string             `json:"value"`
	KPIs      models.KPISnapshot `json:"kpis"`
}

// HandleKPIs serves KPIs for ?dimension=&value=. A missing value selects all
// rows.
func (h *APIHandlers) HandleKPIs(w http.ResponseWriter, r *http.Request) {
	dimension, value := h.selection(r)

	kpis, err := h.session.KPIs(dimension, value)
	if err != nil {
		errors.WriteError(w, h.logger, errors.FromPipeline(err), observability.GetRequestID(r.Context()))
		return
	}
	errors.WriteSuccessWithHeaders(w, KPIResponse{Dimension: dimension, Value: value, KPIs: kpis},
		map[string]string{"Cache-Control": cacheShort})
}

// HandleDimensions lists the distinct values of ?name=, or the offered
// dimensions when name is empty.
func (h *APIHandlers) HandleDimensions(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		errors.WriteSuccess(w, map[string]any{"dimensions": filter.Dimensions, "default": h.opts.DefaultDimension})
		return
	}

	values, err := h.session.DimensionValues(name)
	if err != nil {
		errors.WriteError(w, h.logger, errors.FromPipeline(err), observability.GetRequestID(r.Context()))
		return
	}
	errors.WriteSuccessWithHeaders(w, map[string]any{"dimension": name, "values": values},
		map[string]string{"Cache-Control": cacheShort})
}

// HandleRevenue groups completed revenue by ?by=, within the optional
// ?dimension=&value= filter.
func (h *APIHandlers) HandleRevenue(w http.ResponseWriter, r *http.Request) {
	by := r.URL.Query().Get("by")
	if by == "" {
		by = h.opts.DefaultDimension
	}
	dimension, value := h.selection(r)

	groups, err := h.session.RevenueBy(by, dimension, value)
	if err != nil {
		errors.WriteError(w, h.logger, errors.FromPipeline(err), observability.GetRequestID(r.Context()))
		return
	}
	errors.WriteSuccessWithHeaders(w, groups, map[string]string{"Cache-Control": cacheShort})
}

// RecordsResponse is the merged table in column order.
type RecordsResponse struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Total   int        `json:"total"`
}

// HandleRecords returns the first ?limit= merged rows (default 100). Null
// cells are empty strings.
func (h *APIHandlers) HandleRecords(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			errors.WriteError(w, h.logger, errors.BadRequest("limit must be a non-negative integer"), observability.GetRequestID(r.Context()))
			return
		}
		limit = n
	}

	records, columns, err := h.session.Records(limit)
	if err != nil {
		errors.WriteError(w, h.logger, errors.FromPipeline(err), observability.GetRequestID(r.Context()))
		return
	}
	total := len(records)
	if snap, err := h.session.Current(); err == nil {
		total = len(snap.Records)
	}

	rows := make([][]string, len(records))
	for i, rec := range records {
		row := make([]string, len(columns))
		for j, col := range columns {
			row[j], _ = rec.Value(col)
		}
		rows[i] = row
	}
	errors.WriteSuccess(w, RecordsResponse{Columns: columns, Rows: rows, Total: total})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_, err := h.session.Current()
	errors.WriteSuccess(w, map[string]any{
		"status":    "healthy",
		"loaded":    err == nil,
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.session.Stats()
	if h.opts.Recorder != nil {
		stats["spans"] = h.opts.Recorder.Stats()
	}
	errors.WriteSuccess(w, stats)
}

// selection reads ?dimension= and ?value=, defaulting to the configured
// dimension and all rows.
func (h *APIHandlers) selection(r *http.Request) (string, string) {
	q := r.URL.Query()
	dimension := q.Get("dimension")
	if dimension == "" {
		dimension = h.opts.DefaultDimension
	}
	value := q.Get("value")
	if value == "" {
		value = filter.All
	}
	return dimension, value
}
