package capacity

import (
	"context"
	"log/slog"
	"strings"

	"github.com/haskel/ensemblr/internal/config"
	"github.com/haskel/ensemblr/internal/monitor"
)

// Sampler provides host snapshots.
type Sampler interface {
	Refresh(ctx context.Context) *monitor.Snapshot
	Snapshot() *monitor.Snapshot
}

// InsufficientError lists the limits a snapshot breached.
type InsufficientError struct {
	Reasons []Reason
}

func (e *InsufficientError) Error() string {
	parts := make([]string, len(e.Reasons))
	for i, r := range e.Reasons {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}

// Report is the host state together with the gate's verdict.
type Report struct {
	Allowed  bool              `json:"allowed"`
	Reasons  []string          `json:"reasons,omitempty"`
	Snapshot *monitor.Snapshot `json:"snapshot"`
}

// Gate refuses training starts while the host is over its limits.
type Gate struct {
	sampler Sampler
	checker *ThresholdChecker
	logger  *slog.Logger
}

func NewGate(sampler Sampler, thresholds config.ThresholdsConfig, logger *slog.Logger) *Gate {
	return &Gate{
		sampler: sampler,
		checker: NewThresholdChecker(thresholds),
		logger:  logger,
	}
}

// Check samples the host now and returns an *InsufficientError when any
// limit is breached.
func (g *Gate) Check(ctx context.Context) error {
	snap := g.sampler.Refresh(ctx)
	reasons := g.checker.Check(snap)
	if len(reasons) == 0 {
		return nil
	}

	g.logger.Warn("preflight refused training", "reasons", reasons)
	return &InsufficientError{Reasons: reasons}
}

// Report evaluates the latest background sample without refreshing it.
func (g *Gate) Report() Report {
	snap := g.sampler.Snapshot()
	reasons := g.checker.Check(snap)

	r := Report{
		Allowed:  len(reasons) == 0,
		Snapshot: snap,
	}
	for _, reason := range reasons {
		r.Reasons = append(r.Reasons, string(reason))
	}
	return r
}

func (g *Gate) UpdateThresholds(thresholds config.ThresholdsConfig) {
	g.checker.UpdateThresholds(thresholds)
	g.logger.Info("preflight thresholds updated")
}
