// Package monitor samples host resources with gopsutil. A training job is
// only started when a fresh snapshot leaves enough headroom.
package monitor

import (
	"context"
	"maps"
	"slices"
	"time"
)

// Collector fills its part of a Snapshot.
type Collector interface {
	Name() string
	Collect(ctx context.Context, s *Snapshot) error
}

type CPUState struct {
	UsagePercent float64   `json:"usage_percent"`
	Cores        []float64 `json:"cores"`
}

type MemoryState struct {
	UsedBytes    uint64  `json:"used_bytes"`
	TotalBytes   uint64  `json:"total_bytes"`
	UsagePercent float64 `json:"usage_percent"`
}

type GPUState struct {
	Index          int     `json:"index"`
	Name           string  `json:"name"`
	UsagePercent   float64 `json:"usage_percent"`
	Temperature    int     `json:"temperature"`
	VRAMUsedBytes  uint64  `json:"vram_used_bytes"`
	VRAMTotalBytes uint64  `json:"vram_total_bytes"`
}

// VRAMPercent returns VRAM usage, or 0 when the total is unknown.
func (g GPUState) VRAMPercent() float64 {
	if g.VRAMTotalBytes == 0 {
		return 0
	}
	return float64(g.VRAMUsedBytes) / float64(g.VRAMTotalBytes) * 100
}

type DiskState struct {
	UsedBytes    uint64  `json:"used_bytes"`
	FreeBytes    uint64  `json:"free_bytes"`
	TotalBytes   uint64  `json:"total_bytes"`
	UsagePercent float64 `json:"usage_percent"`
}

// FreeGB is the free space in GiB.
func (d DiskState) FreeGB() float64 {
	return float64(d.FreeBytes) / (1 << 30)
}

// StorageState is keyed by the monitored path.
type StorageState map[string]DiskState

type LoadState struct {
	Load1  float64 `json:"load1"`
	Load5  float64 `json:"load5"`
	Load15 float64 `json:"load15"`
}

// Snapshot is one sample of the host.
type Snapshot struct {
	CPU       CPUState     `json:"cpu"`
	Memory    MemoryState  `json:"memory"`
	GPUs      []GPUState   `json:"gpus"`
	Storage   StorageState `json:"storage"`
	Load      LoadState    `json:"load"`
	Processes int          `json:"processes"`
	Threads   int          `json:"threads"`
	Timestamp time.Time    `json:"timestamp"`
}

func newSnapshot() *Snapshot {
	return &Snapshot{
		GPUs:      []GPUState{},
		Storage:   make(StorageState),
		Timestamp: time.Now(),
	}
}

func (s *Snapshot) Clone() *Snapshot {
	clone := *s
	clone.CPU.Cores = slices.Clone(s.CPU.Cores)
	clone.GPUs = slices.Clone(s.GPUs)
	clone.Storage = maps.Clone(s.Storage)
	if clone.Storage == nil {
		clone.Storage = make(StorageState)
	}
	return &clone
}

// Default returns the gopsutil collectors plus the nvidia-smi GPU collector.
// storagePaths are the directories whose free space matters, usually the
// data and models folders.
func Default(storagePaths []string) []Collector {
	return []Collector{
		NewCPUCollector(),
		NewMemoryCollector(),
		NewStorageCollector(storagePaths),
		NewProcessCollector(),
		NewGPUCollector(),
	}
}
