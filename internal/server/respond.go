package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/haskel/ensemblr/internal/apperr"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindAlreadyTraining:
		return http.StatusConflict
	case apperr.KindNoValidVariants, apperr.KindNoDataset, apperr.KindUnknownVariant,
		apperr.KindInvalidRequest, apperr.KindNoModelsAvailable:
		return http.StatusBadRequest
	case apperr.KindArtifactMissing:
		return http.StatusNotFound
	case apperr.KindInsufficientCapacity:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response",
			"error", err,
			"status", status,
		)
	}
}

// writeError maps err to a status code. Errors without a kind are logged
// and reported with prefix in front of their text.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, prefix string) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		s.writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
			Error: "File too large",
			Kind:  string(apperr.KindInvalidRequest),
		})
		return
	}

	kind := apperr.KindOf(err)
	msg := apperr.Message(err)
	if kind == apperr.KindInternal {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		if prefix != "" {
			msg = prefix + ": " + err.Error()
		}
	}

	s.writeJSON(w, statusFor(kind), ErrorResponse{Error: msg, Kind: string(kind)})
}

func (s *Server) badRequest(w http.ResponseWriter, msg string) {
	s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg, Kind: string(apperr.KindInvalidRequest)})
}
