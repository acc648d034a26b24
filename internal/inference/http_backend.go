package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPBackend talks to a model-serving sidecar:
//
//	POST {base}/v1/models/{variant}/load     {"path": "..."} -> {"classes": [...]}
//	POST {base}/v1/models/{variant}/predict  multipart "image" -> {"probabilities": {...}}
type HTTPBackend struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPBackend(baseURL string, timeout time.Duration) *HTTPBackend {
	return &HTTPBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type loadRequest struct {
	Path string `json:"path"`
}

type loadResponse struct {
	Classes []string `json:"classes"`
}

type predictResponse struct {
	Probabilities map[string]float64 `json:"probabilities"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (b *HTTPBackend) Load(ctx context.Context, variant, artifactPath string) (*Handle, error) {
	body, err := json.Marshal(loadRequest{Path: artifactPath})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint(variant, "load"), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp loadResponse
	if err := b.do(req, &resp); err != nil {
		return nil, fmt.Errorf("load %s: %w", variant, err)
	}

	return &Handle{
		Variant:  variant,
		Path:     artifactPath,
		Classes:  resp.Classes,
		LoadedAt: time.Now(),
	}, nil
}

func (b *HTTPBackend) Predict(ctx context.Context, h *Handle, image []byte) (map[string]float64, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "image")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(image); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint(h.Variant, "predict"), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp predictResponse
	if err := b.do(req, &resp); err != nil {
		return nil, fmt.Errorf("predict %s: %w", h.Variant, err)
	}
	if len(resp.Probabilities) == 0 {
		return nil, fmt.Errorf("predict %s: empty probabilities", h.Variant)
	}
	return resp.Probabilities, nil
}

func (b *HTTPBackend) endpoint(variant, action string) string {
	return fmt.Sprintf("%s/v1/models/%s/%s", b.baseURL, url.PathEscape(variant), action)
}

func (b *HTTPBackend) do(req *http.Request, v any) error {
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var e errorResponse
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return fmt.Errorf("server error %d: %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("server error %d", resp.StatusCode)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
