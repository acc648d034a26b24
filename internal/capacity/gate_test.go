package capacity

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/haskel/ensemblr/internal/monitor"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeSampler struct {
	fresh     *monitor.Snapshot
	cached    *monitor.Snapshot
	refreshes int
}

func (f *fakeSampler) Refresh(context.Context) *monitor.Snapshot {
	f.refreshes++
	return f.fresh
}

func (f *fakeSampler) Snapshot() *monitor.Snapshot {
	return f.cached
}

func TestGate_Check(t *testing.T) {
	overloaded := healthy()
	overloaded.Memory.UsagePercent = 99

	sampler := &fakeSampler{fresh: healthy()}
	gate := NewGate(sampler, defaultThresholds(), testLogger())

	if err := gate.Check(context.Background()); err != nil {
		t.Errorf("expected healthy host to pass, got %v", err)
	}

	sampler.fresh = overloaded
	err := gate.Check(context.Background())

	var insufficient *InsufficientError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientError, got %v", err)
	}
	if len(insufficient.Reasons) != 1 || insufficient.Reasons[0] != ReasonMemoryOverload {
		t.Errorf("unexpected reasons %v", insufficient.Reasons)
	}
	if err.Error() != "memory_overload" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if sampler.refreshes != 2 {
		t.Errorf("Check should sample the host each time, got %d refreshes", sampler.refreshes)
	}
}

func TestGate_Report(t *testing.T) {
	busy := healthy()
	busy.CPU.UsagePercent = 99

	sampler := &fakeSampler{cached: busy}
	gate := NewGate(sampler, defaultThresholds(), testLogger())

	r := gate.Report()
	if r.Allowed || len(r.Reasons) != 1 || r.Reasons[0] != "cpu_overload" {
		t.Errorf("unexpected report %+v", r)
	}
	if sampler.refreshes != 0 {
		t.Error("Report should not refresh the sample")
	}

	relaxed := defaultThresholds()
	relaxed.CPU.MaxPercent = 100
	gate.UpdateThresholds(relaxed)

	if r := gate.Report(); !r.Allowed {
		t.Errorf("expected allowed after relaxing limits, got %+v", r)
	}
}
