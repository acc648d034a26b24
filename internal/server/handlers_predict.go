package server

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/haskel/ensemblr/internal/dataset"
	"github.com/haskel/ensemblr/internal/ensemble"
)

type predictionJSON struct {
	ModelName        string             `json:"model_name"`
	ModelDisplayName string             `json:"model_display_name"`
	PredictedClass   string             `json:"predicted_class"`
	Confidence       float64            `json:"confidence"`
	AllProbabilities map[string]float64 `json:"all_probabilities"`
	PredictionTime   float64            `json:"prediction_time"`
	ModelParams      string             `json:"model_params"`
	ModelSpeed       string             `json:"model_speed"`
}

type ensembleJSON struct {
	PredictedClass       string             `json:"predicted_class"`
	Confidence           float64            `json:"confidence"`
	ModelAgreement       float64            `json:"model_agreement"`
	VotingResults        map[string]int     `json:"voting_results"`
	AverageProbabilities map[string]float64 `json:"average_probabilities"`
}

type confidenceJSON struct {
	AvgConfidence   float64 `json:"avg_confidence"`
	ConfidenceLevel string  `json:"confidence_level"`
	ClassConsensus  bool    `json:"class_consensus"`
	ConfidenceRange float64 `json:"confidence_range"`
}

type PredictResponse struct {
	Success            bool             `json:"success"`
	IndividualResults  []predictionJSON `json:"individual_results"`
	EnsembleResult     *ensembleJSON    `json:"ensemble_result"`
	Explanation        string           `json:"explanation"`
	ConfidenceAnalysis confidenceJSON   `json:"confidence_analysis"`
	TotalModels        int              `json:"total_models"`
	Timestamp          time.Time        `json:"timestamp"`
}

// handlePredict stores the upload in the uploads folder for the duration
// of the request and always removes it afterwards.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, r, err, "")
			return
		}
		s.badRequest(w, "No image file provided")
		return
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	if header.Filename == "" {
		s.badRequest(w, "No image file selected")
		return
	}

	image, err := s.readUpload(file, header.Filename)
	if err != nil {
		s.writeError(w, r, err, "Prediction error")
		return
	}

	results, fused, err := s.deps.Predictor.PredictAll(r.Context(), image)
	if err != nil {
		s.writeError(w, r, err, "Prediction error")
		return
	}

	s.writeJSON(w, http.StatusOK, s.formatPrediction(results, fused))
}

func (s *Server) readUpload(src io.Reader, filename string) ([]byte, error) {
	dir := s.config.Storage.UploadsDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(dir, "predict-*"+filepath.Ext(dataset.SanitizeName(filename)))
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}
	return os.ReadFile(tmp.Name())
}

func (s *Server) formatPrediction(results []ensemble.PredictionResult, fused *ensemble.Result) PredictResponse {
	resp := PredictResponse{
		Success:           true,
		IndividualResults: make([]predictionJSON, 0, len(results)),
		Explanation:       s.deps.Predictor.Explain(results, fused),
		TotalModels:       len(results),
		Timestamp:         time.Now(),
	}

	for _, r := range results {
		resp.IndividualResults = append(resp.IndividualResults, predictionJSON{
			ModelName:        r.ModelName,
			ModelDisplayName: r.ModelDisplayName,
			PredictedClass:   r.PredictedClass,
			Confidence:       ensemble.Round(r.Confidence, 2),
			AllProbabilities: ensemble.RoundMap(r.Probabilities, 2),
			PredictionTime:   ensemble.Round(float64(r.Latency.Microseconds())/1000, 1),
			ModelParams:      r.ModelParams,
			ModelSpeed:       r.ModelSpeed,
		})
	}

	if fused != nil {
		resp.EnsembleResult = &ensembleJSON{
			PredictedClass:       fused.PredictedClass,
			Confidence:           ensemble.Round(fused.Confidence, 2),
			ModelAgreement:       ensemble.Round(fused.ModelAgreement, 1),
			VotingResults:        fused.VotingResults,
			AverageProbabilities: ensemble.RoundMap(fused.AverageProbabilities, 2),
		}
	}

	analysis := s.deps.Predictor.AnalyzeConfidence(results)
	resp.ConfidenceAnalysis = confidenceJSON{
		AvgConfidence:   ensemble.Round(analysis.AvgConfidence, 1),
		ConfidenceLevel: analysis.ConfidenceLevel,
		ClassConsensus:  analysis.UnanimousPrediction,
		ConfidenceRange: ensemble.Round(analysis.ConfidenceRange, 1),
	}
	return resp
}

func (s *Server) handleAvailableModels(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.deps.Loader.Available(s.deps.Orchestrator))
}
