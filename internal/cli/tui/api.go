package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type statusMsg struct {
	data *TrainingStatus
	err  error
}

type rankingsMsg struct {
	data *Comparison
	err  error
}

type hostMsg struct {
	data *HostReport
	err  error
}

type stopMsg struct {
	stopped bool
	err     error
}

type tickMsg time.Time

type apiClient struct {
	baseURL  string
	client   *http.Client
	user     string
	password string
}

func newAPIClient(cfg Config) *apiClient {
	return &apiClient{
		baseURL: cfg.ServerURL,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		user:     cfg.User,
		password: cfg.Password,
	}
}

func (c *apiClient) request(method, path string, v any) error {
	req, err := http.NewRequest(method, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	if c.user != "" && c.password != "" {
		req.SetBasicAuth(c.user, c.password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func fetchStatus(cfg Config) tea.Cmd {
	return func() tea.Msg {
		var st TrainingStatus
		if err := newAPIClient(cfg).request(http.MethodGet, "/api/training/status", &st); err != nil {
			return statusMsg{err: err}
		}
		return statusMsg{data: &st}
	}
}

func fetchRankings(cfg Config) tea.Cmd {
	return func() tea.Msg {
		var c Comparison
		if err := newAPIClient(cfg).request(http.MethodGet, "/api/analytics/comparison", &c); err != nil {
			return rankingsMsg{err: err}
		}
		return rankingsMsg{data: &c}
	}
}

// fetchHost reads the host report. Servers without monitoring answer 503,
// which simply hides the section.
func fetchHost(cfg Config) tea.Cmd {
	return func() tea.Msg {
		var r HostReport
		if err := newAPIClient(cfg).request(http.MethodGet, "/api/system", &r); err != nil {
			return hostMsg{err: err}
		}
		return hostMsg{data: &r}
	}
}

func stopTraining(cfg Config) tea.Cmd {
	return func() tea.Msg {
		var resp struct {
			Stopped bool `json:"stopped"`
		}
		if err := newAPIClient(cfg).request(http.MethodPost, "/api/training/stop", &resp); err != nil {
			return stopMsg{err: err}
		}
		return stopMsg{stopped: resp.Stopped}
	}
}

func refresh(cfg Config) tea.Cmd {
	return tea.Batch(fetchStatus(cfg), fetchRankings(cfg), fetchHost(cfg))
}

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
