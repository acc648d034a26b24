package bom

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	cdx "github.com/CycloneDX/cyclonedx-go"

	"github.com/haskel/ensemblr/internal/apperr"
	"github.com/haskel/ensemblr/internal/registry"
	"github.com/haskel/ensemblr/internal/storage"
)

func newFixture(t *testing.T) (*Builder, *storage.Store) {
	t.Helper()
	dir := t.TempDir()
	st := storage.New(filepath.Join(dir, "models"), filepath.Join(dir, "metrics"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := st.EnsureDirs(); err != nil {
		t.Fatal(err)
	}
	return NewBuilder(registry.Default(), st, "test"), st
}

func train(t *testing.T, st *storage.Store, variant string, weights []byte) {
	t.Helper()
	if err := os.WriteFile(st.ModelPath(variant), weights, 0644); err != nil {
		t.Fatal(err)
	}
	err := st.SaveMetrics(&storage.Metrics{
		Model:        variant,
		Summary:      storage.Summary{BestValAccuracy: 0.9, FinalAccuracy: 0.88, TotalEpochs: 7},
		TrainingTime: 42.5,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func property(c *cdx.Component, name string) string {
	if c.Properties == nil {
		return ""
	}
	for _, p := range *c.Properties {
		if p.Name == name {
			return p.Value
		}
	}
	return ""
}

func TestVariant(t *testing.T) {
	b, st := newFixture(t)
	weights := []byte("resnet weights")
	train(t, st, registry.ResNet, weights)

	bom, err := b.Variant(registry.ResNet)
	if err != nil {
		t.Fatalf("Variant failed: %v", err)
	}

	comp := bom.Metadata.Component
	if comp.Type != cdx.ComponentTypeMachineLearningModel || comp.Name != registry.ResNet {
		t.Errorf("unexpected component %+v", comp)
	}

	sum := sha256.Sum256(weights)
	if comp.Hashes == nil || (*comp.Hashes)[0].Value != hex.EncodeToString(sum[:]) {
		t.Errorf("unexpected hashes %+v", comp.Hashes)
	}

	mp := comp.ModelCard.ModelParameters
	if mp.Task != task || mp.ArchitectureFamily != "resnet" {
		t.Errorf("unexpected model parameters %+v", mp)
	}

	metrics := *comp.ModelCard.QuantitativeAnalysis.PerformanceMetrics
	if len(metrics) != 2 || metrics[0].Value != "0.9" {
		t.Errorf("unexpected performance metrics %+v", metrics)
	}
	if got := property(comp, "ensemblr:total_epochs"); got != "7" {
		t.Errorf("expected total_epochs 7, got %q", got)
	}
	if got := property(comp, "ensemblr:speed"); got != "Slow" {
		t.Errorf("expected speed Slow, got %q", got)
	}
}

func TestVariant_Errors(t *testing.T) {
	b, _ := newFixture(t)

	if _, err := b.Variant("vgg"); apperr.KindOf(err) != apperr.KindUnknownVariant {
		t.Errorf("expected unknown_variant, got %v", err)
	}
	if _, err := b.Variant(registry.MobileNet); !errors.Is(err, apperr.ErrArtifactMissing) {
		t.Errorf("expected artifact_missing, got %v", err)
	}
}

func TestEnsemble(t *testing.T) {
	b, st := newFixture(t)

	if _, err := b.Ensemble(); !errors.Is(err, apperr.ErrNoModelsAvailable) {
		t.Errorf("expected no_models_available, got %v", err)
	}

	train(t, st, registry.MobileNet, []byte("a"))
	train(t, st, registry.DenseNet, []byte("b"))

	bom, err := b.Ensemble()
	if err != nil {
		t.Fatalf("Ensemble failed: %v", err)
	}
	comps := *bom.Components
	if len(comps) != 2 || comps[0].Name != registry.MobileNet || comps[1].Name != registry.DenseNet {
		t.Errorf("unexpected components %+v", comps)
	}
}

func TestEncode(t *testing.T) {
	b, st := newFixture(t)
	train(t, st, registry.EfficientNet, []byte("weights"))

	bom, err := b.Variant(registry.EfficientNet)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, bom); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if doc["bomFormat"] != "CycloneDX" || doc["specVersion"] != "1.6" {
		t.Errorf("unexpected header %v %v", doc["bomFormat"], doc["specVersion"])
	}
}
