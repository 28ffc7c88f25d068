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

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/pbaille/doselog/internal/domain"
	"github.com/pbaille/doselog/internal/ledger"
	"github.com/pbaille/doselog/internal/platform/logger"
)

const (
	defaultListLimit = 20
	shutdownTimeout  = 5 * time.Second
	resetInterval    = time.Minute
)

// Server handles HTTP requests for the dose ledger API
type Server struct {
	ledger *ledger.Ledger
	addr   string
	logger *slog.Logger

	resetEvery time.Duration
}

// New creates a new API server
func New(l *ledger.Ledger, addr string, log *slog.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	return &Server{ledger: l, addr: addr, logger: log, resetEvery: resetInterval}
}

// Handler builds the router with all routes and middleware
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimw.Recoverer)
	r.Use(withCORS)

	r.Get("/health", s.health)

	// Doses
	r.Route("/doses", func(dr chi.Router) {
		dr.Get("/", s.listDoses)
		dr.Post("/", s.takeDose)
		dr.Get("/today", s.dosesToday)
	})
	r.Get("/stats", s.stats)

	// Schedule
	r.Get("/schedule", s.getSchedule)
	r.Put("/schedule", s.putSchedule)

	// Symptoms
	r.Route("/symptoms", func(sr chi.Router) {
		sr.Get("/", s.listSymptoms)
		sr.Post("/", s.recordSymptoms)
		sr.Get("/today", s.symptomsToday)
		sr.Post("/samples", s.recordSymptomSample)
	})

	// Progress
	r.Get("/progress", s.progress)
	r.Get("/progress/symptoms/{id}", s.symptomTrend)

	r.Post("/reset", s.reset)

	return r
}

// Run serves until ctx is cancelled, then shuts down and flushes the ledger
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	loopCtx, stopLoop := context.WithCancel(ctx)
	defer stopLoop()

	s.ledger.CheckAndResetDaily(ctx)
	go s.resetLoop(loopCtx, s.resetEvery)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("stopping server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("shutdown failed", "err", err)
	}
	return s.ledger.Flush(shutdownCtx)
}

// resetLoop advances the reset date once the reset hour passes on a new day
func (s *Server) resetLoop(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.ledger.CheckAndResetDaily(ctx) {
				s.logger.Info("daily reset", "date", s.ledger.LastResetDate())
			}
		}
	}
}

// withCORS adds CORS headers for frontend development
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// TakeDoseRequest is the request body for logging a dose
type TakeDoseRequest struct {
	Label string `json:"label,omitempty"`
	// At is an optional RFC3339 timestamp; empty means now.
	At string `json:"at,omitempty"`
}

func (s *Server) takeDose(w http.ResponseWriter, r *http.Request) {
	var req TakeDoseRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var at time.Time
	if strings.TrimSpace(req.At) != "" {
		parsed, err := time.Parse(time.RFC3339, req.At)
		if err != nil {
			writeError(w, http.StatusBadRequest, "at must be an RFC3339 timestamp")
			return
		}
		at = parsed
	}

	dose := s.ledger.RecordDose(r.Context(), req.Label, at)
	if !s.flush(w, r) {
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"dose":        dose,
		"doses_today": s.ledger.CountDosesToday(),
	})
}

func (s *Server) listDoses(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	offset := 0

	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil && n >= 0 {
			offset = n
		}
	}

	all := s.ledger.Doses()
	// Newest first
	doses := make([]domain.DoseEvent, 0, limit)
	for i := len(all) - 1 - offset; i >= 0 && len(doses) < limit; i-- {
		doses = append(doses, all[i])
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"doses":  doses,
		"total":  len(all),
		"limit":  limit,
		"offset": offset,
	})
}

func (s *Server) dosesToday(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  s.ledger.CountDosesToday(),
		"target": s.ledger.TargetPerDay(),
	})
}

// StatsResponse is the dashboard summary plus persistence state
type StatsResponse struct {
	ledger.Summary
	NextDoseText string `json:"next_dose_text"`
	PendingWrite bool   `json:"pending_write"`
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	summary := s.ledger.Summary()
	writeJSON(w, http.StatusOK, StatsResponse{
		Summary:      summary,
		NextDoseText: summary.Next.String(),
		PendingWrite: s.ledger.Dirty(),
	})
}

// ScheduleBody is the request and response body for the schedule
type ScheduleBody struct {
	Schedule   []domain.ScheduleEntry `json:"schedule"`
	Configured bool                   `json:"configured"`
}

func (s *Server) getSchedule(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ScheduleBody{
		Schedule:   s.ledger.Schedule(),
		Configured: s.ledger.ScheduleConfigured(),
	})
}

func (s *Server) putSchedule(w http.ResponseWriter, r *http.Request) {
	var req ScheduleBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Schedule) == 0 {
		writeError(w, http.StatusBadRequest, "schedule must have at least one entry")
		return
	}
	for i, e := range req.Schedule {
		label := strings.TrimSpace(e.Label)
		if label == "" {
			writeError(w, http.StatusBadRequest, "schedule entry "+strconv.Itoa(i)+" needs a label")
			return
		}
		req.Schedule[i].Label = label
	}

	s.ledger.SetSchedule(r.Context(), req.Schedule)
	s.ledger.MarkScheduleConfigured(r.Context(), true)
	if !s.flush(w, r) {
		return
	}

	s.getSchedule(w, r)
}

func (s *Server) listSymptoms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"symptoms": domain.Symptoms()})
}

// RecordSymptomsRequest is the request body for saving today's ratings
type RecordSymptomsRequest struct {
	Ratings map[int]int `json:"ratings"`
}

func (s *Server) recordSymptoms(w http.ResponseWriter, r *http.Request) {
	var req RecordSymptomsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := domain.ValidateRatings(req.Ratings); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry := s.ledger.RecordSymptoms(r.Context(), req.Ratings)
	if !s.flush(w, r) {
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

// RecordSampleRequest is the request body for a single symptom rating
type RecordSampleRequest struct {
	SymptomID int    `json:"symptomId"`
	Rating    int    `json:"rating"`
	At        string `json:"at,omitempty"`
}

func (s *Server) recordSymptomSample(w http.ResponseWriter, r *http.Request) {
	var req RecordSampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := domain.ValidateRatings(map[int]int{req.SymptomID: req.Rating}); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var at time.Time
	if strings.TrimSpace(req.At) != "" {
		parsed, err := time.Parse(time.RFC3339, req.At)
		if err != nil {
			writeError(w, http.StatusBadRequest, "at must be an RFC3339 timestamp")
			return
		}
		at = parsed
	}

	sample := s.ledger.RecordSymptomSample(r.Context(), req.SymptomID, req.Rating, at)
	if !s.flush(w, r) {
		return
	}

	writeJSON(w, http.StatusCreated, sample)
}

func (s *Server) symptomsToday(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.ledger.TodaySymptomEntry()
	resp := map[string]any{"answered": s.ledger.HasAnsweredToday()}
	if ok {
		resp["entry"] = entry
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) progress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Progress())
}

func (s *Server) symptomTrend(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "symptom id must be a number")
		return
	}
	symptom, ok := domain.LookupSymptom(id)
	if !ok {
		writeError(w, http.StatusNotFound, "symptom not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"symptom": symptom,
		"weekly":  s.ledger.SymptomTrend(id),
	})
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	didReset := s.ledger.CheckAndResetDaily(r.Context())
	if !s.flush(w, r) {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"reset":           didReset,
		"last_reset_date": s.ledger.LastResetDate(),
	})
}

// flush surfaces a pending persistence failure to the client as a 500
func (s *Server) flush(w http.ResponseWriter, r *http.Request) bool {
	if err := s.ledger.Flush(r.Context()); err != nil {
		s.logger.Error("persist ledger", "err", err, "request_id", chimw.GetReqID(r.Context()))
		writeError(w, http.StatusInternalServerError, "state kept in memory but not saved: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
