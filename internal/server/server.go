package server

import (
	"log/slog"
	"net/http"

	"digisale-dash/internal/handlers"
	"digisale-dash/internal/services"
)

type Server struct {
	session     *services.Session
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

func NewServer(session *services.Session, logger *slog.Logger, opts handlers.Options, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		session:     session,
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(session, logger, opts),
		sseHandlers: handlers.NewSSEHandlers(session, logger, opts),
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)

	s.mux.HandleFunc("POST /api/snapshot", s.apiHandlers.HandleSnapshot)
	s.mux.HandleFunc("GET /api/kpis", s.apiHandlers.HandleKPIs)
	s.mux.HandleFunc("GET /api/dimensions", s.apiHandlers.HandleDimensions)
	s.mux.HandleFunc("GET /api/revenue", s.apiHandlers.HandleRevenue)
	s.mux.HandleFunc("GET /api/records", s.apiHandlers.HandleRecords)

	s.mux.HandleFunc("GET /sse/kpis", s.sseHandlers.HandleKPIs)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
