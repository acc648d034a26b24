package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/haskel/ensemblr/internal/storage"
)

const progressSuffix = "_progress.json"

// fileDocument keeps the column layout that training scripts already emit.
type fileDocument struct {
	Epochs      []int     `json:"epochs"`
	ValAccuracy []float64 `json:"val_accuracy"`
}

// FileStore keeps one JSON document per variant in a directory.
type FileStore struct {
	dir    string
	logger *slog.Logger

	mu sync.RWMutex
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(dir string, logger *slog.Logger) *FileStore {
	return &FileStore{dir: dir, logger: logger}
}

// Path returns the progress document path of variant.
func (s *FileStore) Path(variant string) string {
	return filepath.Join(s.dir, variant+progressSuffix)
}

func (s *FileStore) Reset(_ context.Context, variant string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path(variant)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to reset progress for %s: %w", variant, err)
	}
	return nil
}

func (s *FileStore) Append(_ context.Context, variant string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.readLocked(variant)
	if err != nil {
		return err
	}

	last, ok := rec.Latest()
	if err := checkOrder(last, ok, e); err != nil {
		return err
	}

	doc := fileDocument{
		Epochs:      make([]int, 0, rec.Len()+1),
		ValAccuracy: make([]float64, 0, rec.Len()+1),
	}
	for _, prev := range append(rec.Entries, e) {
		doc.Epochs = append(doc.Epochs, prev.Epoch)
		doc.ValAccuracy = append(doc.ValAccuracy, prev.ValAccuracy)
	}

	if err := storage.WriteJSONAtomic(s.Path(variant), doc); err != nil {
		return fmt.Errorf("failed to write progress for %s: %w", variant, err)
	}
	return nil
}

func (s *FileStore) Read(_ context.Context, variant string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.readLocked(variant)
}

func (s *FileStore) readLocked(variant string) (Record, error) {
	rec := Record{Variant: variant}

	data, err := os.ReadFile(s.Path(variant))
	if err != nil {
		if os.IsNotExist(err) {
			return rec, nil
		}
		return rec, fmt.Errorf("failed to read progress for %s: %w", variant, err)
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("failed to decode progress file, treating as empty", "variant", variant, "error", err)
		return rec, nil
	}

	n := min(len(doc.Epochs), len(doc.ValAccuracy))
	rec.Entries = make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		rec.Entries = append(rec.Entries, Entry{Epoch: doc.Epochs[i], ValAccuracy: doc.ValAccuracy[i]})
	}
	return rec, nil
}

func (s *FileStore) Close() error {
	return nil
}
