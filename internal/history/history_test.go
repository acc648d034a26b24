package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sub", "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	runs := []Run{
		{JobID: "job-1", Variant: "mobilenet", Status: "completed", StartedAt: start, CompletedAt: start.Add(time.Minute), DurationMs: 60000, Epochs: 10, BestValAccuracy: 0.9, FinalAccuracy: 0.88},
		{JobID: "job-1", Variant: "resnet", Status: "error", StartedAt: start, CompletedAt: start.Add(time.Second), DurationMs: 1000, ErrorMessage: "out of memory"},
		{JobID: "job-2", Variant: "mobilenet", Status: "completed", StartedAt: start.Add(time.Hour), CompletedAt: start.Add(2 * time.Hour), DurationMs: 3600000, Epochs: 20, BestValAccuracy: 0.94, FinalAccuracy: 0.93},
	}
	for _, r := range runs {
		if err := s.Record(ctx, r); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	// duplicate job/variant is ignored
	if err := s.Record(ctx, runs[0]); err != nil {
		t.Fatalf("duplicate Record failed: %v", err)
	}

	all, err := s.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(all))
	}
	if all[0].JobID != "job-2" {
		t.Errorf("expected newest first, got %s", all[0].JobID)
	}
	if !all[2].StartedAt.Equal(start) {
		t.Errorf("expected started_at round trip, got %v", all[2].StartedAt)
	}

	mobile, err := s.Recent(ctx, "mobilenet", 1)
	if err != nil {
		t.Fatalf("Recent(mobilenet) failed: %v", err)
	}
	if len(mobile) != 1 || mobile[0].Epochs != 20 {
		t.Errorf("unexpected filtered runs %+v", mobile)
	}
}

func TestStore_StatsByVariant(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for i, status := range []string{"completed", "error", "completed"} {
		err := s.Record(ctx, Run{
			JobID:           string(rune('a' + i)),
			Variant:         "densenet",
			Status:          status,
			StartedAt:       now,
			CompletedAt:     now,
			DurationMs:      int64(1000 * (i + 1)),
			BestValAccuracy: float64(i) / 10,
		})
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	stats, err := s.StatsByVariant(ctx)
	if err != nil {
		t.Fatalf("StatsByVariant failed: %v", err)
	}
	st := stats["densenet"]
	if st.Runs != 3 || st.Failures != 1 {
		t.Errorf("unexpected counts %+v", st)
	}
	if st.BestValAccuracy != 0.2 {
		t.Errorf("expected best 0.2, got %f", st.BestValAccuracy)
	}
	if st.AvgDurationMs != 2000 {
		t.Errorf("expected avg 2000, got %f", st.AvgDurationMs)
	}
}

func TestStore_RecentEmpty(t *testing.T) {
	s := openTestStore(t)

	runs, err := s.Recent(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if runs == nil || len(runs) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", runs)
	}
}
