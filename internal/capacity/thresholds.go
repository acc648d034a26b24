// Package capacity decides whether the host has room for a training job.
package capacity

import (
	"sync"

	"github.com/haskel/ensemblr/internal/config"
	"github.com/haskel/ensemblr/internal/monitor"
)

type Reason string

const (
	ReasonCPUOverload    Reason = "cpu_overload"
	ReasonMemoryOverload Reason = "memory_overload"
	ReasonGPUOverload    Reason = "gpu_overload"
	ReasonVRAMOverload   Reason = "vram_overload"
	ReasonStorageLow     Reason = "storage_low"
)

// ThresholdChecker compares a snapshot to configured limits. Limits can be
// swapped at runtime on config reload.
type ThresholdChecker struct {
	mu         sync.RWMutex
	thresholds config.ThresholdsConfig
}

func NewThresholdChecker(thresholds config.ThresholdsConfig) *ThresholdChecker {
	return &ThresholdChecker{thresholds: thresholds}
}

// Check returns every limit the snapshot breaches, each reason at most once.
func (c *ThresholdChecker) Check(s *monitor.Snapshot) []Reason {
	c.mu.RLock()
	t := c.thresholds
	c.mu.RUnlock()

	var reasons []Reason

	if s.CPU.UsagePercent > t.CPU.MaxPercent {
		reasons = append(reasons, ReasonCPUOverload)
	}
	if s.Memory.UsagePercent > t.Memory.MaxPercent {
		reasons = append(reasons, ReasonMemoryOverload)
	}

	var gpuHot, vramFull bool
	for _, gpu := range s.GPUs {
		gpuHot = gpuHot || gpu.UsagePercent > t.GPU.MaxPercent
		vramFull = vramFull || gpu.VRAMPercent() > t.VRAM.MaxPercent
	}
	if gpuHot {
		reasons = append(reasons, ReasonGPUOverload)
	}
	if vramFull {
		reasons = append(reasons, ReasonVRAMOverload)
	}

	for _, disk := range s.Storage {
		if disk.FreeGB() < t.Storage.MinFreeGB {
			reasons = append(reasons, ReasonStorageLow)
			break
		}
	}

	return reasons
}

func (c *ThresholdChecker) Thresholds() config.ThresholdsConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.thresholds
}

func (c *ThresholdChecker) UpdateThresholds(thresholds config.ThresholdsConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.thresholds = thresholds
}
