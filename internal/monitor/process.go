package monitor

import (
	"context"

	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/process"
)

// ProcessCollector reports the process and thread count plus load average.
type ProcessCollector struct{}

func NewProcessCollector() *ProcessCollector {
	return &ProcessCollector{}
}

func (c *ProcessCollector) Name() string {
	return "process"
}

func (c *ProcessCollector) Collect(ctx context.Context, s *Snapshot) error {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return err
	}

	threads := 0
	for _, p := range procs {
		if n, err := p.NumThreadsWithContext(ctx); err == nil {
			threads += int(n)
		}
	}
	s.Processes = len(procs)
	s.Threads = threads

	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		// not every platform has a load average
		return nil
	}
	s.Load = LoadState{Load1: avg.Load1, Load5: avg.Load5, Load15: avg.Load15}
	return nil
}
