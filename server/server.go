// Package server exposes the evaluation engine over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/envergo/moulinette/geo"
	"github.com/envergo/moulinette/hedges"
	"github.com/envergo/moulinette/metrics"
	"github.com/envergo/moulinette/moulinette"
	"github.com/envergo/moulinette/plantation"
)

// Server serves evaluations over HTTP. The engine is swapped atomically
// when the department configs reload, so in-flight evaluations keep the
// set they started with.
type Server struct {
	index       *geo.ZoneIndex
	departments *geo.DepartmentIndex
	engine      atomic.Pointer[moulinette.Moulinette]
	plantation  *plantation.Evaluator
	logger      *slog.Logger
	opts        []moulinette.Option
}

// New creates a server over the given indexes and config set.
func New(index *geo.ZoneIndex, departments *geo.DepartmentIndex, configs *moulinette.ConfigSet, plantEval *plantation.Evaluator, logger *slog.Logger, opts ...moulinette.Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		index:       index,
		departments: departments,
		plantation:  plantEval,
		logger:      logger,
		opts:        opts,
	}
	s.SwapConfigs(configs)
	return s
}

// SwapConfigs replaces the engine with one over the new config set.
func (s *Server) SwapConfigs(configs *moulinette.ConfigSet) {
	opts := append([]moulinette.Option{moulinette.WithLogger(s.logger)}, s.opts...)
	s.engine.Store(moulinette.New(s.index, s.departments, configs, opts...))
}

// Routes builds the HTTP router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Post("/evaluate", s.handleEvaluate)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// evaluateRequest is the evaluation request body. Hedges use the hedge
// wire format (a list of records with geometry and properties).
type evaluateRequest struct {
	Variant string            `json:"variant"`
	Values  map[string]string `json:"values"`
	Hedges  json.RawMessage   `json:"hedges,omitempty"`
	Date    string            `json:"date,omitempty"`
}

// evaluateResponse bundles the regulatory verdict with the plantation
// adequacy verdict when the project declares plantations.
type evaluateResponse struct {
	Evaluation *moulinette.Output `json:"evaluation"`
	Plantation *plantation.Result `json:"plantation,omitempty"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	in := moulinette.Input{
		Variant: req.Variant,
		Values:  req.Values,
	}
	if req.Date != "" {
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		in.Date = date
	}
	if len(req.Hedges) > 0 {
		hs, err := hedges.ParseSet(req.Hedges)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		in.Hedges = hs
	}

	start := time.Now()
	out, err := s.engine.Load().Evaluate(in)
	if err != nil {
		var fieldErrs moulinette.FieldErrors
		if errors.As(err, &fieldErrs) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  moulinette.ErrInvalidInput.Error(),
				"fields": fieldErrs,
			})
			return
		}
		if errors.Is(err, moulinette.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("Evaluation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "evaluation failed")
		return
	}
	metrics.EvaluationsTotal.WithLabelValues(string(out.Result)).Inc()
	metrics.EvaluationDurationMs.Observe(float64(time.Since(start).Milliseconds()))

	resp := evaluateResponse{Evaluation: out}
	if in.Hedges != nil && in.Hedges.Len() > 0 && len(in.Hedges.ToPlant()) > 0 {
		plantRes, err := s.plantation.Evaluate(r.Context(), out, in.Hedges, req.Values["reimplantation"])
		if err != nil {
			s.logger.Error("Plantation evaluation failed", "error", err)
			writeError(w, http.StatusInternalServerError, "plantation evaluation failed")
			return
		}
		resp.Plantation = plantRes
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
