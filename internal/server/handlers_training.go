package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/haskel/ensemblr/internal/history"
)

type startTrainingRequest struct {
	Models []string `json:"models"`
}

type stopTrainingResponse struct {
	Message string `json:"message"`
	Stopped bool   `json:"stopped"`
}

type historyResponse struct {
	Enabled bool                     `json:"enabled"`
	Runs    []history.Run            `json:"runs"`
	Stats   map[string]history.Stats `json:"stats,omitempty"`
}

// handleStartTraining accepts an empty body, which trains every variant.
func (s *Server) handleStartTraining(w http.ResponseWriter, r *http.Request) {
	var req startTrainingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.badRequest(w, "invalid request body")
		return
	}

	result, err := s.deps.Orchestrator.Start(r.Context(), req.Models)
	if err != nil {
		s.writeError(w, r, err, "Error starting training")
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTrainingStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.deps.Orchestrator.Status(r.Context()))
}

func (s *Server) handleStopTraining(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, stopTrainingResponse{
		Message: "Training stop signal sent",
		Stopped: s.deps.Orchestrator.Stop(),
	})
}

func (s *Server) handleTrainingHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		s.writeJSON(w, http.StatusOK, historyResponse{Runs: []history.Run{}})
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.badRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	variant := r.URL.Query().Get("model")
	if variant != "" && !s.deps.Registry.IsValid(variant) {
		s.badRequest(w, "Invalid model name")
		return
	}

	runs, err := s.deps.History.Recent(r.Context(), variant, limit)
	if err != nil {
		s.writeError(w, r, err, "Error reading training history")
		return
	}
	stats, err := s.deps.History.StatsByVariant(r.Context())
	if err != nil {
		s.writeError(w, r, err, "Error reading training history")
		return
	}

	s.writeJSON(w, http.StatusOK, historyResponse{Enabled: true, Runs: runs, Stats: stats})
}
