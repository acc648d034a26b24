package monitor

import (
	"context"

	"github.com/shirou/gopsutil/v4/disk"
)

// StorageCollector reports free space for a set of directories.
type StorageCollector struct {
	paths []string
}

func NewStorageCollector(paths []string) *StorageCollector {
	if len(paths) == 0 {
		paths = []string{"/"}
	}
	return &StorageCollector{paths: paths}
}

func (c *StorageCollector) Name() string {
	return "storage"
}

func (c *StorageCollector) Collect(ctx context.Context, s *Snapshot) error {
	for _, path := range c.paths {
		usage, err := disk.UsageWithContext(ctx, path)
		if err != nil {
			// not created yet or not mounted
			continue
		}

		s.Storage[path] = DiskState{
			UsedBytes:    usage.Used,
			FreeBytes:    usage.Free,
			TotalBytes:   usage.Total,
			UsagePercent: usage.UsedPercent,
		}
	}
	return nil
}
