package progress

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupMiniredis starts a miniredis instance and returns a connected RedisStore.
func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })

	s, err := NewRedisStore(context.Background(), "redis://"+mr.Addr(), "test:progress:", testLogger())
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return mr, s
}

func storesUnderTest(t *testing.T) map[string]Store {
	_, redisStore := setupMiniredis(t)
	return map[string]Store{
		"file":   NewFileStore(t.TempDir(), testLogger()),
		"redis":  redisStore,
		"memory": NewMemoryStore(),
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			rec, err := s.Read(ctx, "resnet")
			if err != nil {
				t.Fatalf("Read on empty store failed: %v", err)
			}
			if rec.Len() != 0 {
				t.Fatalf("expected empty record, got %d entries", rec.Len())
			}
			if _, ok := rec.Latest(); ok {
				t.Fatal("expected no latest entry")
			}

			for i, acc := range []float64{0.41, 0.63, 0.77} {
				if err := s.Append(ctx, "resnet", Entry{Epoch: i + 1, ValAccuracy: acc}); err != nil {
					t.Fatalf("Append epoch %d failed: %v", i+1, err)
				}
			}

			rec, err = s.Read(ctx, "resnet")
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			if rec.Len() != 3 {
				t.Fatalf("expected 3 entries, got %d", rec.Len())
			}
			latest, _ := rec.Latest()
			if latest.Epoch != 3 || latest.ValAccuracy != 0.77 {
				t.Errorf("unexpected latest entry %+v", latest)
			}

			err = s.Append(ctx, "resnet", Entry{Epoch: 3, ValAccuracy: 0.9})
			if !errors.Is(err, ErrEpochOrder) {
				t.Errorf("expected ErrEpochOrder for repeated epoch, got %v", err)
			}
			err = s.Append(ctx, "resnet", Entry{Epoch: 2, ValAccuracy: 0.9})
			if !errors.Is(err, ErrEpochOrder) {
				t.Errorf("expected ErrEpochOrder for earlier epoch, got %v", err)
			}

			other, _ := s.Read(ctx, "mobilenet")
			if other.Len() != 0 {
				t.Error("records of different variants must be independent")
			}

			if err := s.Reset(ctx, "resnet"); err != nil {
				t.Fatalf("Reset failed: %v", err)
			}
			rec, _ = s.Read(ctx, "resnet")
			if rec.Len() != 0 {
				t.Errorf("expected empty record after reset, got %d", rec.Len())
			}
			if err := s.Append(ctx, "resnet", Entry{Epoch: 1, ValAccuracy: 0.3}); err != nil {
				t.Errorf("epoch 1 should be accepted after reset: %v", err)
			}
		})
	}
}

func TestFileStore_DocumentLayout(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir, testLogger())
	ctx := context.Background()

	if err := s.Append(ctx, "densenet", Entry{Epoch: 1, ValAccuracy: 0.5}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "densenet_progress.json"))
	if err != nil {
		t.Fatalf("expected progress file: %v", err)
	}
	want := "{\n  \"epochs\": [\n    1\n  ],\n  \"val_accuracy\": [\n    0.5\n  ]\n}\n"
	if string(data) != want {
		t.Errorf("unexpected document:\n%s", data)
	}
}

func TestFileStore_ReadsExternalDocument(t *testing.T) {
	dir := t.TempDir()
	doc := `{"epochs": [1, 2, 3], "val_accuracy": [0.2, 0.4]}`
	if err := os.WriteFile(filepath.Join(dir, "mobilenet_progress.json"), []byte(doc), 0644); err != nil {
		t.Fatalf("failed to write document: %v", err)
	}

	rec, err := NewFileStore(dir, testLogger()).Read(context.Background(), "mobilenet")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if rec.Len() != 2 {
		t.Errorf("mismatched columns should be truncated to the shorter one, got %d", rec.Len())
	}
}

func TestFileStore_CorruptDocumentIsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "resnet_progress.json"), []byte("{"), 0644); err != nil {
		t.Fatalf("failed to write document: %v", err)
	}

	rec, err := NewFileStore(dir, testLogger()).Read(context.Background(), "resnet")
	if err != nil {
		t.Fatalf("expected corrupt file to read as empty, got %v", err)
	}
	if rec.Len() != 0 {
		t.Errorf("expected empty record, got %d", rec.Len())
	}
}

func TestRedisStore_KeyLayout(t *testing.T) {
	mr, s := setupMiniredis(t)

	if err := s.Append(context.Background(), "efficientnet", Entry{Epoch: 1, ValAccuracy: 0.25}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	items, err := mr.List("test:progress:efficientnet")
	if err != nil {
		t.Fatalf("expected list key: %v", err)
	}
	if len(items) != 1 || items[0] != `{"epoch":1,"val_accuracy":0.25}` {
		t.Errorf("unexpected list content %v", items)
	}
}

func TestNewRedisStore_BadURL(t *testing.T) {
	if _, err := NewRedisStore(context.Background(), "not-a-url", "p:", testLogger()); err == nil {
		t.Error("expected error for invalid URL")
	}
}
