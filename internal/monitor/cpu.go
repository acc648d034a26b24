package monitor

import (
	"context"

	"github.com/shirou/gopsutil/v4/cpu"
)

type CPUCollector struct{}

func NewCPUCollector() *CPUCollector {
	return &CPUCollector{}
}

func (c *CPUCollector) Name() string {
	return "cpu"
}

func (c *CPUCollector) Collect(ctx context.Context, s *Snapshot) error {
	cores, err := cpu.PercentWithContext(ctx, 0, true)
	if err != nil {
		return err
	}

	var total float64
	for _, p := range cores {
		total += p
	}
	if len(cores) > 0 {
		total /= float64(len(cores))
	}

	s.CPU = CPUState{
		UsagePercent: total,
		Cores:        cores,
	}
	return nil
}
