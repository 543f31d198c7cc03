package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/holdex/internal/domain/level"
	domusage "github.com/kailas-cloud/holdex/internal/domain/usage"
	healthuc "github.com/kailas-cloud/holdex/internal/usecase/health"
	holdingsuc "github.com/kailas-cloud/holdex/internal/usecase/holdings"
)

// HoldingsService answers holdings queries.
type HoldingsService interface {
	Search(ctx context.Context, query, fund string) (holdingsuc.Response, error)
	TopHoldings(ctx context.Context, fund string, limit int) (holdingsuc.Response, error)
	FundsContaining(ctx context.Context, ticker string) (holdingsuc.Response, error)
	Funds(ctx context.Context) (holdingsuc.Response, error)
	Stats(ctx context.Context) (holdingsuc.Response, error)
}

// UsageReporter builds quota usage reports.
type UsageReporter interface {
	GetReport(ctx context.Context) domusage.Report
}

// HealthChecker checks dependencies.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server serves the holdex HTTP API.
type Server struct {
	holdings      HoldingsService
	usage         UsageReporter
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(holdings HoldingsService, usage UsageReporter, health HealthChecker, logger *zap.Logger) *Server {
	return &Server{
		holdings:      holdings,
		usage:         usage,
		health:        health,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Mount registers every route on r.
func (s *Server) Mount(r chi.Router) {
	r.Get("/api/search", s.Search)
	r.Get("/api/funds", s.Funds)
	r.Get("/api/holdings/{fund}/top", s.TopHoldings)
	r.Get("/api/stock/{ticker}/funds", s.StockFunds)
	r.Get("/api/stats", s.Stats)
	r.Get("/api/usage", s.Usage)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.NotFound(s.NotFound)
	r.MethodNotAllowed(s.NotFound)
}

// Search handles GET /api/search?q=&fund=.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, `Missing search query parameter "q"`)
		return
	}

	resp, err := s.holdings.Search(r.Context(), q, r.URL.Query().Get("fund"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.respond(w, resp)
}

// Funds handles GET /api/funds.
func (s *Server) Funds(w http.ResponseWriter, r *http.Request) {
	resp, err := s.holdings.Funds(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.respond(w, resp)
}

// TopHoldings handles GET /api/holdings/{fund}/top?limit=.
func (s *Server) TopHoldings(w http.ResponseWriter, r *http.Request) {
	limit, err := holdingsuc.ParseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid limit parameter")
		return
	}

	resp, err := s.holdings.TopHoldings(r.Context(), chi.URLParam(r, "fund"), limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.respond(w, resp)
}

// StockFunds handles GET /api/stock/{ticker}/funds.
func (s *Server) StockFunds(w http.ResponseWriter, r *http.Request) {
	resp, err := s.holdings.FundsContaining(r.Context(), chi.URLParam(r, "ticker"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.respond(w, resp)
}

// Stats handles GET /api/stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	resp, err := s.holdings.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.respond(w, resp)
}

// Usage handles GET /api/usage.
func (s *Server) Usage(w http.ResponseWriter, r *http.Request) {
	report := s.usage.GetReport(r.Context())
	writeJSON(w, http.StatusOK, usageToResponse(&report))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{
		Status:  string(report.Status),
		Service: "holdex",
		Checks:  report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// NotFound answers unknown routes.
func (s *Server) NotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, CodeNotFound, "Endpoint not found")
}

// respond writes a lookup payload. Answers shaped below normal carry the
// service level in the body; every answer carries it in headers.
func (s *Server) respond(w http.ResponseWriter, resp holdingsuc.Response) {
	w.Header().Set("X-Service-Level", resp.Level.String())
	if resp.Source != "" {
		w.Header().Set("X-Data-Source", string(resp.Source))
	}

	body := resp.Body
	if resp.Level != level.Normal {
		body = withField(body, "service_level", resp.Level.String())
	}
	writeJSON(w, http.StatusOK, body)
}

// withField adds key to a JSON object body. Non-object bodies pass through.
func withField(body any, key string, value any) any {
	data, err := json.Marshal(body)
	if err != nil {
		return body
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return body
	}
	obj[key] = value
	return obj
}

func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	return s.logger.With(zap.String("request_id", middleware.GetReqID(r.Context())))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
