package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/gridline/replay/internal/middleware"
	"github.com/gridline/replay/internal/replay"
	"github.com/gridline/replay/internal/service"
)

const maxBodyBytes = 16 * 1024 * 1024

// Server wires HTTP handlers to the replay service.
type Server struct {
	replay *service.Replay
	logger zerolog.Logger
}

// NewServer constructs a Server instance.
func NewServer(replay *service.Replay, logger zerolog.Logger) *Server {
	return &Server{replay: replay, logger: logger}
}

// Routes builds the HTTP router for the replay service.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(s.logger))
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/transitions", s.handleAppend)
		r.Post("/sample", s.handleSample)
		r.Get("/stats", s.handleStats)
	})
	return r
}

func (s *Server) handleAppend(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	var t replay.Transition
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid transition payload")
		return
	}
	if err := s.replay.AppendTransition(r.Context(), t); err != nil {
		s.respondError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"status": "stored"})
}

func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload struct {
		BatchSize int `json:"batch_size"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid sample payload")
		return
	}
	sampled, err := s.replay.SampleBatch(r.Context(), payload.BatchSize)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"transitions": sampled})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.replay.Stats(r.Context()))
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, replay.ErrShape), errors.Is(err, replay.ErrWindowMismatch):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, replay.ErrSampleSize), errors.Is(err, replay.ErrInsufficientHistory):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, replay.ErrNoValidSample):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}
