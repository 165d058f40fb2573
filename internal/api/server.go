package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gymsim/internal/config"
	"gymsim/internal/gym"
	"gymsim/internal/planner"
	"gymsim/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Server struct {
	cfg     config.APIConfig
	log     *slog.Logger
	planner *planner.Service
	mux     *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, svc *planner.Service) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		log:     logger,
		planner: svc,
		mux:     chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	if s.cfg.MaxBodySize > 0 {
		r.Use(middleware.RequestSize(s.cfg.MaxBodySize))
	}
	r.Use(s.accessLog)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/gyms", s.handleGyms)
		r.Get("/benefits", s.handleBenefits)
		r.Post("/simulate", s.handleSimulate)
		r.Post("/compare", s.handleCompare)

		r.Post("/plans", s.handleSavePlan)
		r.Get("/plans", s.handleListPlans)
		r.Get("/plans/{id}", s.handleGetPlan)
		r.Put("/plans/{id}", s.handleSavePlan)
		r.Delete("/plans/{id}", s.handleDeletePlan)
		r.Post("/plans/{id}/run", s.handleRunPlan)
		r.Get("/plans/{id}/runs", s.handleListRuns)

		r.Get("/prices", s.handlePrices)
		r.Put("/prices/{item}", s.handleSetPrice)
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleGyms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"gyms": s.planner.Catalog().Gyms()})
}

func (s *Server) handleBenefits(w http.ResponseWriter, _ *http.Request) {
	effects := map[gym.JumpFamily]gym.JumpEffect{}
	for _, f := range gym.JumpFamilies() {
		effects[f] = gym.DefaultJumpEffect(f)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"benefits":     gym.Benefits(),
		"jump_effects": effects,
	})
}

type simulateRequest struct {
	Plan      gym.Plan `json:"plan"`
	WithCosts bool     `json:"with_costs"`
	Summary   bool     `json:"summary"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var in simulateRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.planner.Simulate(r.Context(), in.Plan, in.WithCosts)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if in.Summary {
		res.Snapshots = nil
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Plans     []gym.Plan `json:"plans"`
		WithCosts bool       `json:"with_costs"`
		Summary   bool       `json:"summary"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.planner.Compare(r.Context(), in.Plans, in.WithCosts)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if in.Summary {
		for i := range out {
			out[i].Result.Snapshots = nil
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"states": out})
}

func (s *Server) handleSavePlan(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name string   `json:"name"`
		Plan gym.Plan `json:"plan"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	rec, err := s.planner.SavePlan(r.Context(), store.PlanRecord{ID: id, Name: in.Name, Plan: in.Plan})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	status := http.StatusCreated
	if id != "" {
		status = http.StatusOK
	}
	writeJSON(w, status, rec)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.planner.ListPlans(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": plans})
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	rec, err := s.planner.GetPlan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := s.planner.DeletePlan(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (s *Server) handleRunPlan(w http.ResponseWriter, r *http.Request) {
	out, err := s.planner.RunPlan(r.Context(), chi.URLParam(r, "id"), idempotencyKey(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if summary, _ := strconv.ParseBool(r.URL.Query().Get("summary")); summary {
		out.Result.Snapshots = nil
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	runs, err := s.planner.ListRuns(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	prices, err := s.planner.Prices(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prices": prices})
}

func (s *Server) handleSetPrice(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Price decimal.Decimal `json:"price"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry, err := s.planner.SetPrice(r.Context(), chi.URLParam(r, "item"), in.Price)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrDuplicateIdempotency), errors.Is(err, store.ErrTxConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, gym.ErrInvalidConfig), errors.Is(err, gym.ErrSectionCoverage), errors.Is(err, gym.ErrInvalidCatalog):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, store.ErrInvalidID), errors.Is(err, store.ErrMissingName),
		errors.Is(err, store.ErrInvalidItem), errors.Is(err, store.ErrNegativePrice),
		errors.Is(err, planner.ErrTooManyStates):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func idempotencyKey(r *http.Request) string {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		return key
	}
	return uuid.NewString()
}
