// Package httpapi serves the eventret REST API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rs/cors"

	"eventret/internal/api"
	"eventret/internal/domain"
)

// maxBodyBytes caps POST bodies; ad-hoc event lists are small.
const maxBodyBytes = 1 << 20

// Server serves the REST API on top of an api.Service.
type Server struct {
	svc     *api.Service
	metrics http.Handler
	origins []string
	log     *slog.Logger
}

// NewServer creates a REST server. metrics may be nil to omit /metrics;
// origins lists the CORS origins allowed, empty meaning any.
func NewServer(svc *api.Service, metrics http.Handler, origins []string) *Server {
	return &Server{
		svc:     svc,
		metrics: metrics,
		origins: origins,
		log:     slog.Default().With("component", "httpapi"),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/backtest", s.handleRun)
	mux.HandleFunc("GET /api/backtest/latest", s.handleLatest)
	mux.HandleFunc("GET /api/catalogs", s.handleCatalogs)
	mux.HandleFunc("GET /api/offsets", s.handleOffsets)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	origins := s.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(mux)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req api.RunRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "decoding request: "+err.Error())
		return
	}

	resp, err := s.svc.Run(r.Context(), req)
	if err != nil {
		kind := domain.Classify(err)
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.log.Error("backtest failed", "error", err, "kind", kind)
		}
		writeError(w, status, kind, err.Error())
		return
	}
	if resp.Stale {
		w.Header().Set("X-Eventret-Stale", "true")
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLatest(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Latest())
}

func (s *Server) handleCatalogs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"catalogs": s.svc.Catalogs()})
}

func (s *Server) handleOffsets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Offsets())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	if errors.Is(err, domain.ErrUnknownCatalog) {
		return http.StatusNotFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	switch domain.Classify(err) {
	case "bad_request":
		return http.StatusBadRequest
	case "date_not_in_series", "offset_out_of_range", "invalid_price", "empty_input":
		return http.StatusUnprocessableEntity
	case "transport", "malformed_data":
		return http.StatusBadGateway
	case "stale":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ErrorBody is the JSON payload of every non-2xx response.
type ErrorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, ErrorBody{Error: msg, Kind: kind})
}
