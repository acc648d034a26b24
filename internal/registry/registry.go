// Package registry holds the static catalogue of trainable classifier variants.
package registry

import "slices"

// Speed is a coarse inference speed class shown to users.
type Speed string

const (
	SpeedFast   Speed = "Fast"
	SpeedMedium Speed = "Medium"
	SpeedSlow   Speed = "Slow"
)

// Variant describes one classifier architecture the service can train.
type Variant struct {
	ID             string  `json:"id"`
	DisplayName    string  `json:"name"`
	Description    string  `json:"description"`
	Params         string  `json:"params"`
	ParamsMillions float64 `json:"params_millions"`
	Speed          Speed   `json:"speed"`
	Family         string  `json:"family"`
}

// Variant identifiers in canonical order.
const (
	MobileNet    = "mobilenet"
	ResNet       = "resnet"
	EfficientNet = "efficientnet"
	DenseNet     = "densenet"
)

var catalogue = []Variant{
	{
		ID:             MobileNet,
		DisplayName:    "MobileNetV2",
		Description:    "Lightweight network built on inverted residual blocks, suited to quick iteration and small devices.",
		Params:         "3.5M",
		ParamsMillions: 3.5,
		Speed:          SpeedFast,
		Family:         "mobilenet",
	},
	{
		ID:             ResNet,
		DisplayName:    "ResNet50",
		Description:    "50-layer residual network, a robust general-purpose baseline.",
		Params:         "25.6M",
		ParamsMillions: 25.6,
		Speed:          SpeedSlow,
		Family:         "resnet",
	},
	{
		ID:             EfficientNet,
		DisplayName:    "EfficientNetB0",
		Description:    "Compound-scaled network balancing depth, width and resolution.",
		Params:         "5.3M",
		ParamsMillions: 5.3,
		Speed:          SpeedMedium,
		Family:         "efficientnet",
	},
	{
		ID:             DenseNet,
		DisplayName:    "DenseNet121",
		Description:    "Densely connected network that reuses features across layers.",
		Params:         "8.0M",
		ParamsMillions: 8.0,
		Speed:          SpeedMedium,
		Family:         "densenet",
	},
}

// Registry is a read-only view over a variant catalogue.
type Registry struct {
	variants []Variant
	index    map[string]int
}

// Default returns the registry of the four supported architectures.
func Default() *Registry {
	return New(catalogue)
}

// New builds a registry from variants. Order is preserved and later
// duplicates of an id are ignored.
func New(variants []Variant) *Registry {
	r := &Registry{index: make(map[string]int, len(variants))}
	for _, v := range variants {
		if _, dup := r.index[v.ID]; dup {
			continue
		}
		r.index[v.ID] = len(r.variants)
		r.variants = append(r.variants, v)
	}
	return r
}

// All returns every variant in canonical order.
func (r *Registry) All() []Variant {
	return slices.Clone(r.variants)
}

// IDs returns every variant id in canonical order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.variants))
	for i, v := range r.variants {
		ids[i] = v.ID
	}
	return ids
}

// Lookup returns the variant with the given id.
func (r *Registry) Lookup(id string) (Variant, bool) {
	i, ok := r.index[id]
	if !ok {
		return Variant{}, false
	}
	return r.variants[i], true
}

func (r *Registry) IsValid(id string) bool {
	_, ok := r.index[id]
	return ok
}

// Order returns the canonical position of id, or -1.
func (r *Registry) Order(id string) int {
	i, ok := r.index[id]
	if !ok {
		return -1
	}
	return i
}

// Filter keeps known ids in request order and drops duplicates.
func (r *Registry) Filter(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !r.IsValid(id) || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// DisplayName returns the human-readable name of id, falling back to id.
func (r *Registry) DisplayName(id string) string {
	if v, ok := r.Lookup(id); ok {
		return v.DisplayName
	}
	return id
}

func (r *Registry) Len() int {
	return len(r.variants)
}
