package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type createFoldersRequest struct {
	Folders []string `json:"folders"`
}

type createFoldersResponse struct {
	Message string   `json:"message"`
	Folders []string `json:"folders"`
}

type uploadResponse struct {
	Message       string   `json:"message"`
	UploadedCount int      `json:"uploaded_count"`
	Warnings      []string `json:"warnings,omitempty"`
}

func (s *Server) handleCreateFolders(w http.ResponseWriter, r *http.Request) {
	var req createFoldersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	if len(req.Folders) == 0 {
		s.badRequest(w, "No folders specified")
		return
	}

	created, err := s.deps.Dataset.CreateClasses(req.Folders)
	if err != nil {
		s.writeError(w, r, err, "Error creating folders")
		return
	}

	s.writeJSON(w, http.StatusOK, createFoldersResponse{
		Message: fmt.Sprintf("Successfully created %d folders", len(created)),
		Folders: created,
	})
}

// handleUploadImages pairs images[i] with folder_names[i]. Extra entries on
// either side are ignored.
func (s *Server) handleUploadImages(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes()); err != nil {
		s.writeError(w, r, err, "Error uploading images")
		return
	}
	defer r.MultipartForm.RemoveAll()

	images := r.MultipartForm.File["images"]
	folders := r.MultipartForm.Value["folder_names"]
	if len(images) == 0 || len(folders) == 0 {
		s.badRequest(w, "No images or folder names provided")
		return
	}

	resp := uploadResponse{}
	for i := 0; i < min(len(images), len(folders)); i++ {
		fh := images[i]
		if fh.Filename == "" {
			continue
		}

		f, err := fh.Open()
		if err != nil {
			resp.Warnings = append(resp.Warnings, fmt.Sprintf("Error uploading %s: %v", fh.Filename, err))
			continue
		}
		_, err = s.deps.Dataset.SaveImage(folders[i], fh.Filename, f)
		f.Close()
		if err != nil {
			resp.Warnings = append(resp.Warnings, fmt.Sprintf("Error uploading %s: %v", fh.Filename, err))
			continue
		}
		resp.UploadedCount++
	}

	resp.Message = fmt.Sprintf("Successfully uploaded %d images", resp.UploadedCount)
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDatasetInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.deps.Dataset.Info(r.Context())
	if err != nil {
		s.writeError(w, r, err, "Error getting dataset info")
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}
