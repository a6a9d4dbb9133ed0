package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"orderintake/internal/catalog"
	"orderintake/internal/config"
	"orderintake/internal/pipeline"
)

// Server exposes the intake pipeline over HTTP. All request handling
// resolves the catalog snapshot once through the intake service.
type Server struct {
	cfg    config.Config
	logger *zap.Logger
	intake *pipeline.IntakeService
	store  *catalog.Store
}

func New(cfg config.Config, logger *zap.Logger, intake *pipeline.IntakeService, store *catalog.Store) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{cfg: cfg, logger: logger, intake: intake, store: store}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/parse-email", s.handleParseEmail)
	r.Post("/validate-order", s.handleValidateOrder)
	r.Post("/merge-orders", s.handleMergeOrders)
	r.Get("/catalog", s.handleCatalog)
	r.Post("/catalog/reload", s.handleCatalogReload)

	return r
}
