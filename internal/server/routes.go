package server

import (
	"net/http"
	"net/http/pprof"

	"github.com/haskel/ensemblr/internal/server/middleware"
)

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleInfo)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)

	mux.HandleFunc("POST /api/dataset/folders", s.handleCreateFolders)
	mux.HandleFunc("POST /api/dataset/images", s.handleUploadImages)
	mux.HandleFunc("GET /api/dataset", s.handleDatasetInfo)

	mux.HandleFunc("POST /api/training/start", s.handleStartTraining)
	mux.HandleFunc("GET /api/training/status", s.handleTrainingStatus)
	mux.HandleFunc("POST /api/training/stop", s.handleStopTraining)
	mux.HandleFunc("GET /api/training/history", s.handleTrainingHistory)
	mux.HandleFunc("GET /api/training/stream", s.handleTrainingStream)

	mux.HandleFunc("POST /api/predict", s.handlePredict)
	mux.HandleFunc("GET /api/models/available", s.handleAvailableModels)

	mux.HandleFunc("GET /api/analytics/metrics/{model}", s.handleModelMetrics)
	mux.HandleFunc("GET /api/analytics/comparison", s.handleComparison)

	mux.HandleFunc("GET /api/download/model/{model}", s.handleDownloadModel)
	mux.HandleFunc("GET /api/download/metrics/{model}", s.handleDownloadMetrics)
	mux.HandleFunc("GET /api/download/bom/{model}", s.handleDownloadBOM)
	mux.HandleFunc("GET /api/download/bom", s.handleDownloadEnsembleBOM)

	mux.HandleFunc("GET /api/system", s.handleSystem)

	// paths used by the first web frontend
	mux.HandleFunc("POST /api/create_folders", s.handleCreateFolders)
	mux.HandleFunc("POST /api/upload_images", s.handleUploadImages)
	mux.HandleFunc("GET /api/dataset_info", s.handleDatasetInfo)
	mux.HandleFunc("POST /api/start_training", s.handleStartTraining)
	mux.HandleFunc("GET /api/training_status", s.handleTrainingStatus)
	mux.HandleFunc("POST /api/stop_training", s.handleStopTraining)

	s.setupDebugRoutes(mux)

	return mux
}

// setupDebugRoutes mounts pprof behind its own authentication.
func (s *Server) setupDebugRoutes(mux *http.ServeMux) {
	if !s.config.Server.Profiling.Enabled {
		return
	}

	debugAuth := middleware.DebugAuth(middleware.DebugAuthConfig{
		Token:    s.config.Debug.Auth.Token,
		Fallback: s.authConfig,
	})

	s.logger.Info("profiling endpoints enabled at /debug/pprof/ (auth required)")

	mux.Handle("GET /debug/pprof/{$}", debugAuth(http.HandlerFunc(pprof.Index)))
	mux.Handle("GET /debug/pprof/cmdline", debugAuth(http.HandlerFunc(pprof.Cmdline)))
	mux.Handle("GET /debug/pprof/profile", debugAuth(http.HandlerFunc(pprof.Profile)))
	mux.Handle("GET /debug/pprof/symbol", debugAuth(http.HandlerFunc(pprof.Symbol)))
	mux.Handle("POST /debug/pprof/symbol", debugAuth(http.HandlerFunc(pprof.Symbol)))
	mux.Handle("GET /debug/pprof/trace", debugAuth(http.HandlerFunc(pprof.Trace)))
	mux.Handle("GET /debug/pprof/{name}", debugAuth(http.HandlerFunc(pprof.Index)))
}
