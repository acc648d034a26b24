package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"
)

// ArtifactInfo describes a trained model file.
type ArtifactInfo struct {
	Exists    bool      `json:"exists"`
	Path      string    `json:"path"`
	Size      int64     `json:"size,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// HasArtifact reports whether variant has a trained artifact on disk.
func (s *Store) HasArtifact(variant string) bool {
	_, err := os.Stat(s.ModelPath(variant))
	return err == nil
}

// Artifact returns information about the trained artifact of variant.
func (s *Store) Artifact(variant string) ArtifactInfo {
	info := ArtifactInfo{
		Path: s.ModelPath(variant),
	}

	stat, err := os.Stat(info.Path)
	if err != nil || stat.IsDir() {
		return info
	}

	info.Exists = true
	info.Size = stat.Size()
	info.UpdatedAt = stat.ModTime()
	return info
}

// ArtifactSHA256 returns the hex SHA-256 of the trained artifact of variant.
func (s *Store) ArtifactSHA256(variant string) (string, error) {
	file, err := os.Open(s.ModelPath(variant))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to open artifact: %w", err)
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("failed to hash artifact: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DeleteArtifact removes the trained artifact and metrics of variant.
func (s *Store) DeleteArtifact(variant string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, path := range []string{s.ModelPath(variant), s.MetricsPath(variant)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete %s: %w", path, err)
		}
	}
	s.logger.Info("deleted artifact", "variant", variant)
	return nil
}
