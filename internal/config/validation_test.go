package config

import (
	"testing"
)

func TestValidateDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestValidateServer(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*ServerConfig)
		wantErr bool
	}{
		{"valid defaults", func(s *ServerConfig) {}, false},
		{"port zero", func(s *ServerConfig) { s.Port = 0 }, true},
		{"port too high", func(s *ServerConfig) { s.Port = 65536 }, true},
		{"port max", func(s *ServerConfig) { s.Port = 65535 }, false},
		{"upload zero", func(s *ServerConfig) { s.MaxUploadMB = 0 }, true},
		{"rate limit without rps", func(s *ServerConfig) {
			s.RateLimit.Enabled = true
			s.RateLimit.RequestsPerSecond = 0
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg.Server)
			err := cfg.Server.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateSections(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"empty models dir", func(c *Config) { c.Storage.ModelsDir = " " }, true},
		{"redis without url", func(c *Config) {
			c.Progress.Backend = "redis"
			c.Progress.Redis.URL = ""
		}, true},
		{"redis with url", func(c *Config) { c.Progress.Backend = "redis" }, false},
		{"history without path", func(c *Config) { c.History.Path = "" }, true},
		{"history disabled without path", func(c *Config) {
			c.History.Enabled = false
			c.History.Path = ""
		}, false},
		{"unknown trainer", func(c *Config) { c.Training.Trainer = "remote" }, true},
		{"command trainer without command", func(c *Config) { c.Training.Command = "" }, true},
		{"simulated trainer without command", func(c *Config) {
			c.Training.Trainer = "simulated"
			c.Training.Command = ""
		}, false},
		{"zero epochs", func(c *Config) { c.Training.Epochs = 0 }, true},
		{"http backend without url", func(c *Config) { c.Inference.URL = "" }, true},
		{"unknown inference backend", func(c *Config) { c.Inference.Backend = "grpc" }, true},
		{"unordered thresholds", func(c *Config) { c.Ensemble.HighMin = 95 }, true},
		{"threshold over 100", func(c *Config) { c.Ensemble.UncertainBelow = 120 }, true},
		{"cpu threshold over 100", func(c *Config) { c.Preflight.Thresholds.CPU.MaxPercent = 101 }, true},
		{"negative free storage", func(c *Config) { c.Preflight.Thresholds.Storage.MinFreeGB = -5 }, true},
		{"monitoring too fast", func(c *Config) { c.Monitoring.IntervalMS = 50 }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, true},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateAuth(t *testing.T) {
	tests := []struct {
		name    string
		auth    AuthConfig
		wantErr bool
	}{
		{"disabled", AuthConfig{Enabled: false}, false},
		{"enabled with credentials", AuthConfig{Enabled: true, User: "admin", Password: "secret"}, false},
		{"enabled no user", AuthConfig{Enabled: true, Password: "secret"}, true},
		{"enabled no password", AuthConfig{Enabled: true, User: "admin"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.auth.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}
}
