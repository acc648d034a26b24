package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"

	cdx "github.com/CycloneDX/cyclonedx-go"

	"github.com/haskel/ensemblr/internal/apperr"
	"github.com/haskel/ensemblr/internal/bom"
	"github.com/haskel/ensemblr/internal/storage"
)

func (s *Server) handleModelMetrics(w http.ResponseWriter, r *http.Request) {
	variant := r.PathValue("model")
	if !s.deps.Registry.IsValid(variant) {
		s.badRequest(w, "Invalid model name")
		return
	}

	raw, err := s.deps.Storage.LoadRawMetrics(variant)
	if errors.Is(err, storage.ErrNotFound) {
		s.notFound(w, fmt.Sprintf("Metrics not found for %s", variant))
		return
	}
	if err != nil {
		s.writeError(w, r, err, "Error loading metrics")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.deps.Ranker.Compare())
}

func (s *Server) handleDownloadModel(w http.ResponseWriter, r *http.Request) {
	variant := r.PathValue("model")
	if !s.deps.Registry.IsValid(variant) {
		s.badRequest(w, "Invalid model name")
		return
	}
	s.serveAttachment(w, r, s.deps.Storage.ModelPath(variant), variant+"_model.h5",
		"application/octet-stream", fmt.Sprintf("Model %s not found", variant))
}

func (s *Server) handleDownloadMetrics(w http.ResponseWriter, r *http.Request) {
	variant := r.PathValue("model")
	if !s.deps.Registry.IsValid(variant) {
		s.badRequest(w, "Invalid model name")
		return
	}
	s.serveAttachment(w, r, s.deps.Storage.MetricsPath(variant), variant+"_metrics.json",
		"application/json", fmt.Sprintf("Metrics for %s not found", variant))
}

func (s *Server) handleDownloadBOM(w http.ResponseWriter, r *http.Request) {
	variant := r.PathValue("model")
	if !s.deps.Registry.IsValid(variant) {
		s.badRequest(w, "Invalid model name")
		return
	}

	doc, err := s.deps.BOM.Variant(variant)
	if errors.Is(err, apperr.ErrArtifactMissing) {
		s.notFound(w, fmt.Sprintf("Model %s not found", variant))
		return
	}
	if err != nil {
		s.writeError(w, r, err, "Error building BOM")
		return
	}
	s.writeBOM(w, r, doc, variant+".cdx.json")
}

func (s *Server) handleDownloadEnsembleBOM(w http.ResponseWriter, r *http.Request) {
	doc, err := s.deps.BOM.Ensemble()
	if err != nil {
		s.writeError(w, r, err, "Error building BOM")
		return
	}
	s.writeBOM(w, r, doc, "ensemble.cdx.json")
}

func (s *Server) writeBOM(w http.ResponseWriter, r *http.Request, doc *cdx.BOM, filename string) {
	var buf bytes.Buffer
	if err := bom.Encode(&buf, doc); err != nil {
		s.writeError(w, r, err, "Error encoding BOM")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.cyclonedx+json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) serveAttachment(w http.ResponseWriter, r *http.Request, path, filename, contentType, missing string) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		s.notFound(w, missing)
		return
	}
	if err != nil {
		s.writeError(w, r, err, "Error downloading file")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.writeError(w, r, err, "Error downloading file")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	http.ServeContent(w, r, filename, info.ModTime(), f)
}

func (s *Server) notFound(w http.ResponseWriter, msg string) {
	s.writeJSON(w, http.StatusNotFound, ErrorResponse{Error: msg, Kind: string(apperr.KindArtifactMissing)})
}

func (s *Server) handleSystem(w http.ResponseWriter, r *http.Request) {
	if s.deps.Gate == nil {
		s.writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error: "Host monitoring is disabled",
			Kind:  string(apperr.KindInternal),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, s.deps.Gate.Report())
}
