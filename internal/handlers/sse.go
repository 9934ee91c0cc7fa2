package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"digisale-dash/internal/filter"
	"digisale-dash/internal/models"
	"digisale-dash/internal/services"
	"digisale-dash/internal/ui/templates"
)

type SSEHandlers struct {
	session *services.Session
	logger  *slog.Logger
	opts    Options
}

func NewSSEHandlers(session *services.Session, logger *slog.Logger, opts Options) *SSEHandlers {
	return &SSEHandlers{
		session: session,
		logger:  logger,
		opts:    opts.withDefaults(),
	}
}

// dashboardSignals mirrors the client-side signals of the dashboard page.
type dashboardSignals struct {
	Dimension string `json:"dimension"`
	Value     string `json:"value"`
}

func (h *SSEHandlers) readSignals(r *http.Request) dashboardSignals {
	var s dashboardSignals
	if err := datastar.ReadSignals(r, &s); err != nil {
		h.logger.Debug("ignoring unreadable signals", "error", err)
	}
	q := r.URL.Query()
	if s.Dimension == "" {
		s.Dimension = q.Get("dimension")
	}
	if s.Value == "" {
		s.Value = q.Get("value")
	}
	if s.Dimension == "" {
		s.Dimension = h.opts.DefaultDimension
	}
	if s.Value == "" {
		s.Value = filter.All
	}
	return s
}

// HandleKPIs patches the KPI cards, the value selector and the revenue table
// for the selected dimension and value, and pushes the KPIs as signals.
func (h *SSEHandlers) HandleKPIs(w http.ResponseWriter, r *http.Request) {
	signals := h.readSignals(r)
	sse := datastar.NewSSE(w, r)

	if _, err := h.session.Current(); err != nil {
		if err := sse.PatchElements(`<section id="` + templates.KPICardsID + `" class="kpi-cards empty">No data loaded yet</section>`); err != nil {
			h.logger.Warn("patch elements", "error", err)
		}
		return
	}

	values, err := h.session.DimensionValues(signals.Dimension)
	if err != nil {
		h.logger.Error("dimension values", "error", err, "dimension", signals.Dimension)
		return
	}
	if signals.Value != filter.All && !slices.Contains(values, signals.Value) {
		signals.Value = filter.All
	}

	kpis, err := h.session.KPIs(signals.Dimension, signals.Value)
	if err != nil {
		h.logger.Error("filtered kpis", "error", err)
		return
	}
	groups, err := h.session.RevenueBy(signals.Dimension, signals.Dimension, signals.Value)
	if err != nil {
		h.logger.Error("revenue by dimension", "error", err)
		return
	}

	fragments := []templ.Component{
		templates.KPICards(kpis),
		templates.DimensionOptions(values, signals.Value),
		templates.RevenueTable("Revenue by "+signals.Dimension, groups),
	}
	for _, c := range fragments {
		html, err := renderFragment(r.Context(), c)
		if err != nil {
			h.logger.Error("render fragment", "error", err)
			return
		}
		if err := sse.PatchElements(html); err != nil {
			h.logger.Warn("patch elements", "error", err)
			return
		}
	}

	payload, err := json.Marshal(map[string]any{
		"dimension": signals.Dimension,
		"value":     signals.Value,
		"kpis":      kpiSignal(kpis),
	})
	if err != nil {
		h.logger.Error("marshal kpi signals", "error", err)
		return
	}
	if err := sse.PatchSignals(payload); err != nil {
		h.logger.Warn("patch signals", "error", err)
		return
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// kpiSignal flattens decimals to display strings for the client.
func kpiSignal(k models.KPISnapshot) map[string]any {
	return map[string]any{
		"totalRevenue":     templates.Money(k.TotalRevenue),
		"totalProfit":      templates.Money(k.TotalProfit),
		"completedOrders":  k.CompletedOrders,
		"cancellationRate": templates.Percent(k.CancellationRate),
		"totalOrders":      k.TotalOrders,
	}
}

func renderFragment(ctx context.Context, c templ.Component) (string, error) {
	var buf strings.Builder
	if err := c.Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
