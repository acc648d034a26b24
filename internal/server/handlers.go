package server

import (
	"net/http"
	"os"
)

type InfoResponse struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	Models    []string `json:"models"`
	Predictor string   `json:"predictor"`
	BestModel string   `json:"best_model,omitempty"`

	StreamSubscribers int    `json:"stream_subscribers"`
	DroppedEvents     uint64 `json:"dropped_events"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ReadyResponse struct {
	Ready   bool   `json:"ready"`
	Message string `json:"message,omitempty"`
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info := InfoResponse{
		Name:      "ensemblr",
		Version:   s.version,
		Models:    s.deps.Registry.IDs(),
		Predictor: s.deps.Predictor.State().String(),
	}
	if best, ok := s.deps.Ranker.Compare().Best(); ok {
		info.BestModel = best.Model
	}
	if s.deps.Events != nil {
		info.StreamSubscribers = s.deps.Events.Subscribers()
		info.DroppedEvents = s.deps.Events.Dropped()
	}
	s.writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// handleReady reports ready once the storage folders exist.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	dirs := []string{
		s.deps.Dataset.Dir(),
		s.deps.Storage.ModelsDir(),
		s.deps.Storage.MetricsDir(),
	}
	for _, dir := range dirs {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			s.writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{
				Ready:   false,
				Message: "storage folder missing: " + dir,
			})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, ReadyResponse{Ready: true})
}
