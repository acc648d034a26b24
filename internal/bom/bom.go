// Package bom describes trained variants as a CycloneDX machine-learning
// bill of materials.
package bom

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	cdx "github.com/CycloneDX/cyclonedx-go"
	"github.com/google/uuid"

	"github.com/haskel/ensemblr/internal/apperr"
	"github.com/haskel/ensemblr/internal/registry"
	"github.com/haskel/ensemblr/internal/storage"
)

const (
	task       = "image-classification"
	toolName   = "ensemblr"
	propPrefix = "ensemblr:"
)

// Builder assembles BOMs from the registry and persisted artifacts.
type Builder struct {
	registry *registry.Registry
	storage  *storage.Store
	version  string
	now      func() time.Time
}

func NewBuilder(reg *registry.Registry, st *storage.Store, version string) *Builder {
	return &Builder{
		registry: reg,
		storage:  st,
		version:  version,
		now:      time.Now,
	}
}

// Variant builds a BOM whose subject is a single trained variant.
func (b *Builder) Variant(variant string) (*cdx.BOM, error) {
	comp, err := b.component(variant)
	if err != nil {
		return nil, err
	}

	bom := b.newBOM()
	bom.Metadata.Component = comp
	return bom, nil
}

// Ensemble builds a BOM listing every trained variant as a component of
// the ensemble. Untrained variants are skipped.
func (b *Builder) Ensemble() (*cdx.BOM, error) {
	var components []cdx.Component
	for _, id := range b.registry.IDs() {
		comp, err := b.component(id)
		if errors.Is(err, apperr.ErrArtifactMissing) {
			continue
		}
		if err != nil {
			return nil, err
		}
		components = append(components, *comp)
	}
	if len(components) == 0 {
		return nil, apperr.ErrNoModelsAvailable
	}

	bom := b.newBOM()
	bom.Metadata.Component = &cdx.Component{
		BOMRef:  "ensemble",
		Type:    cdx.ComponentTypeApplication,
		Name:    "ensemble",
		Version: b.version,
	}
	bom.Components = &components
	return bom, nil
}

// Encode writes bom as pretty printed JSON.
func Encode(w io.Writer, bom *cdx.BOM) error {
	enc := cdx.NewBOMEncoder(w, cdx.BOMFileFormatJSON)
	enc.SetPretty(true)
	return enc.EncodeVersion(bom, cdx.SpecVersion1_6)
}

func (b *Builder) newBOM() *cdx.BOM {
	bom := cdx.NewBOM()
	bom.SerialNumber = "urn:uuid:" + uuid.NewString()
	bom.Metadata = &cdx.Metadata{
		Timestamp: b.now().UTC().Format(time.RFC3339),
		Tools: &cdx.ToolsChoice{
			Components: &[]cdx.Component{{
				Type:    cdx.ComponentTypeApplication,
				Name:    toolName,
				Version: b.version,
			}},
		},
	}
	return bom
}

func (b *Builder) component(variant string) (*cdx.Component, error) {
	v, ok := b.registry.Lookup(variant)
	if !ok {
		return nil, apperr.New(apperr.KindUnknownVariant, "Invalid model name")
	}

	art := b.storage.Artifact(variant)
	if !art.Exists {
		return nil, apperr.ErrArtifactMissing
	}

	sum, err := b.storage.ArtifactSHA256(variant)
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", variant, err)
	}

	card := &cdx.MLModelCard{
		ModelParameters: &cdx.MLModelParameters{
			Task:               task,
			ArchitectureFamily: v.Family,
			ModelArchitecture:  v.DisplayName,
		},
	}

	props := []cdx.Property{
		{Name: propPrefix + "params", Value: v.Params},
		{Name: propPrefix + "speed", Value: string(v.Speed)},
		{Name: propPrefix + "artifact_size", Value: strconv.FormatInt(art.Size, 10)},
	}

	m, err := b.storage.LoadMetrics(variant)
	switch {
	case err == nil:
		card.QuantitativeAnalysis = &cdx.MLQuantitativeAnalysis{
			PerformanceMetrics: &[]cdx.MLPerformanceMetric{
				{Type: "best_val_accuracy", Value: formatFloat(m.Summary.BestValAccuracy)},
				{Type: "final_accuracy", Value: formatFloat(m.Summary.FinalAccuracy)},
			},
		}
		props = append(props,
			cdx.Property{Name: propPrefix + "total_epochs", Value: strconv.Itoa(m.Summary.TotalEpochs)},
			cdx.Property{Name: propPrefix + "training_time_seconds", Value: formatFloat(m.TrainingTime)},
		)
		if m.JobID != "" {
			props = append(props, cdx.Property{Name: propPrefix + "job_id", Value: m.JobID})
		}
	case errors.Is(err, storage.ErrNotFound):
	default:
		return nil, fmt.Errorf("failed to read metrics of %s: %w", variant, err)
	}

	return &cdx.Component{
		BOMRef:      "model/" + variant,
		Type:        cdx.ComponentTypeMachineLearningModel,
		Name:        variant,
		Version:     art.UpdatedAt.UTC().Format(time.RFC3339),
		Description: v.Description,
		Hashes: &[]cdx.Hash{
			{Algorithm: cdx.HashAlgoSHA256, Value: sum},
		},
		ModelCard:  card,
		Properties: &props,
	}, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
