package monitor

import (
	"context"
	"testing"
)

func TestParseNvidiaSMI(t *testing.T) {
	out := "0, NVIDIA A100-SXM4-40GB, 37, 54, 1024, 40960\n1, NVIDIA A100-SXM4-40GB, 0, 31, 0, 40960\n"

	gpus, err := parseNvidiaSMI(out)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(gpus) != 2 {
		t.Fatalf("expected 2 gpus, got %d", len(gpus))
	}

	g := gpus[0]
	if g.Name != "NVIDIA A100-SXM4-40GB" || g.UsagePercent != 37 || g.Temperature != 54 {
		t.Errorf("unexpected gpu %+v", g)
	}
	if g.VRAMUsedBytes != 1024<<20 || g.VRAMTotalBytes != 40960<<20 {
		t.Errorf("memory should be converted from MiB, got %d/%d", g.VRAMUsedBytes, g.VRAMTotalBytes)
	}
	if gpus[1].Index != 1 {
		t.Errorf("expected index 1, got %d", gpus[1].Index)
	}
}

func TestParseNvidiaSMI_Malformed(t *testing.T) {
	if _, err := parseNvidiaSMI("0, only, three\n"); err == nil {
		t.Error("expected error for short record")
	}
}

func TestGPUCollector_Unavailable(t *testing.T) {
	c := &GPUCollector{}
	snap := newSnapshot()

	if err := c.Collect(context.Background(), snap); err != nil {
		t.Fatalf("collect should not fail without nvidia-smi: %v", err)
	}
	if len(snap.GPUs) != 0 {
		t.Errorf("expected no gpus, got %v", snap.GPUs)
	}
}
