package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeCollector struct {
	name  string
	fill  func(*Snapshot)
	err   error
	calls atomic.Int32
}

func (f *fakeCollector) Name() string {
	return f.name
}

func (f *fakeCollector) Collect(_ context.Context, s *Snapshot) error {
	f.calls.Add(1)
	if f.err != nil {
		return f.err
	}
	f.fill(s)
	return nil
}

func TestSampler_Snapshot(t *testing.T) {
	collectors := []Collector{
		&fakeCollector{name: "cpu", fill: func(s *Snapshot) {
			s.CPU = CPUState{UsagePercent: 50, Cores: []float64{40, 60}}
		}},
		&fakeCollector{name: "memory", fill: func(s *Snapshot) {
			s.Memory = MemoryState{UsedBytes: 1024, TotalBytes: 2048, UsagePercent: 50}
		}},
		&fakeCollector{name: "broken", err: errors.New("no access")},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewSampler(collectors, time.Hour, testLogger())
	s.Start(ctx)
	defer s.Stop()

	snap := s.Snapshot()
	if snap.CPU.UsagePercent != 50 || len(snap.CPU.Cores) != 2 {
		t.Errorf("unexpected cpu state %+v", snap.CPU)
	}
	if snap.Memory.UsagePercent != 50 {
		t.Errorf("unexpected memory state %+v", snap.Memory)
	}
	if snap.GPUs == nil || snap.Storage == nil {
		t.Error("gpus and storage should be initialized")
	}

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("failed to marshal snapshot: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if _, ok := decoded["load"]; !ok {
		t.Error("expected load in JSON")
	}
}

func TestSampler_RefreshesOnInterval(t *testing.T) {
	c := &fakeCollector{name: "cpu", fill: func(s *Snapshot) {}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewSampler([]Collector{c}, 10*time.Millisecond, testLogger())
	s.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for c.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()
	s.Stop()

	if c.calls.Load() < 3 {
		t.Errorf("expected repeated collection, got %d", c.calls.Load())
	}
}

func TestSnapshot_Clone(t *testing.T) {
	snap := &Snapshot{
		CPU:     CPUState{Cores: []float64{40, 60}},
		GPUs:    []GPUState{{Index: 0, Name: "GPU0"}},
		Storage: StorageState{"/": {UsedBytes: 100, TotalBytes: 200}},
	}

	clone := snap.Clone()

	snap.CPU.Cores[0] = 100
	snap.GPUs[0].Name = "Modified"
	snap.Storage["/tmp"] = DiskState{}

	if clone.CPU.Cores[0] != 40 {
		t.Errorf("clone cores modified: %f", clone.CPU.Cores[0])
	}
	if clone.GPUs[0].Name != "GPU0" {
		t.Errorf("clone GPU name modified: %s", clone.GPUs[0].Name)
	}
	if _, exists := clone.Storage["/tmp"]; exists {
		t.Error("clone storage should not have /tmp")
	}
}

func TestStateHelpers(t *testing.T) {
	g := GPUState{VRAMUsedBytes: 1 << 30, VRAMTotalBytes: 4 << 30}
	if g.VRAMPercent() != 25 {
		t.Errorf("expected 25%%, got %f", g.VRAMPercent())
	}
	if (GPUState{}).VRAMPercent() != 0 {
		t.Error("unknown VRAM total should read as 0%")
	}
	if d := (DiskState{FreeBytes: 3 << 30}); d.FreeGB() != 3 {
		t.Errorf("expected 3 GB free, got %f", d.FreeGB())
	}
}
