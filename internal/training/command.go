package training

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/haskel/ensemblr/internal/progress"
)

// CommandTrainer runs an external program per variant. The program prints
// JSON lines on stdout:
//
//	{"epoch": 3, "val_accuracy": 0.81}
//	{"final_accuracy": 0.84, "best_val_accuracy": 0.86}
//
// Any other output is logged at debug level. Lines end at \n or \r, so
// carriage-return progress bars split into separate lines, and lines longer
// than maxOutputLine are skipped.
type CommandTrainer struct {
	Command string
	// Args may contain {variant}, {data_dir}, {artifact} and {epochs}.
	Args   []string
	Env    []string
	Logger *slog.Logger
}

const (
	maxOutputLine = 1024 * 1024
	maxErrorLine  = 512
)

type commandEvent struct {
	Epoch           *int     `json:"epoch"`
	ValAccuracy     *float64 `json:"val_accuracy"`
	FinalAccuracy   *float64 `json:"final_accuracy"`
	BestValAccuracy *float64 `json:"best_val_accuracy"`
}

func (t *CommandTrainer) Train(ctx context.Context, req TrainRequest, report EpochFunc) (TrainResult, error) {
	cmd := exec.CommandContext(ctx, t.Command, expandArgs(t.Args, req)...)
	cmd.Env = append(os.Environ(), t.Env...)
	cmd.Env = append(cmd.Env,
		"ENSEMBLR_VARIANT="+req.Variant,
		"ENSEMBLR_JOB_ID="+req.JobID,
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return TrainResult{}, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return TrainResult{}, err
	}

	if err := cmd.Start(); err != nil {
		return TrainResult{}, fmt.Errorf("failed to start trainer: %w", err)
	}

	var wg sync.WaitGroup
	var lastErrLine string
	wg.Add(1)
	go func() {
		defer wg.Done()
		lastErrLine = lastLine(stderr)
	}()

	res, reported := t.consume(stdout, req.Variant, report)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if lastErrLine != "" {
			return TrainResult{}, fmt.Errorf("trainer exited: %w: %s", err, lastErrLine)
		}
		return TrainResult{}, fmt.Errorf("trainer exited: %w", err)
	}

	if _, err := os.Stat(req.ArtifactPath); err != nil {
		return TrainResult{}, fmt.Errorf("trainer produced no artifact at %s", req.ArtifactPath)
	}
	if !reported {
		return TrainResult{}, fmt.Errorf("trainer reported no epochs and no final accuracy")
	}

	return res, nil
}

// consume parses trainer events from r until EOF. It reports whether any
// epoch or final event was seen.
func (t *CommandTrainer) consume(r io.Reader, variant string, report EpochFunc) (TrainResult, bool) {
	var res TrainResult
	var reported bool
	scanner := newLineScanner(r, maxOutputLine)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		var ev commandEvent
		if !strings.HasPrefix(line, "{") || json.Unmarshal([]byte(line), &ev) != nil {
			if t.Logger != nil && line != "" {
				t.Logger.Debug("trainer output", "variant", variant, "line", line)
			}
			continue
		}

		switch {
		case ev.Epoch != nil && ev.ValAccuracy != nil:
			report(progress.Entry{Epoch: *ev.Epoch, ValAccuracy: *ev.ValAccuracy})
			res.Epochs = max(res.Epochs, *ev.Epoch)
			res.BestValAccuracy = max(res.BestValAccuracy, *ev.ValAccuracy)
			res.FinalAccuracy = *ev.ValAccuracy
			reported = true
		case ev.FinalAccuracy != nil:
			res.FinalAccuracy = *ev.FinalAccuracy
			if ev.BestValAccuracy != nil {
				res.BestValAccuracy = max(res.BestValAccuracy, *ev.BestValAccuracy)
			}
			reported = true
		}
	}
	if err := scanner.Err(); err != nil && t.Logger != nil {
		t.Logger.Warn("failed to read trainer output", "variant", variant, "error", err)
	}
	// keep the pipe drained so the child never blocks on a full buffer
	io.Copy(io.Discard, r)
	return res, reported
}

func expandArgs(args []string, req TrainRequest) []string {
	r := strings.NewReplacer(
		"{variant}", req.Variant,
		"{data_dir}", req.DataDir,
		"{artifact}", req.ArtifactPath,
		"{epochs}", strconv.Itoa(req.Epochs),
	)
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = r.Replace(a)
	}
	return out
}

// lastLine drains r and returns its last non-empty line, cut to
// maxErrorLine bytes.
func lastLine(r io.Reader) string {
	var last string
	scanner := newLineScanner(r, 64*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) > maxErrorLine {
			line = line[len(line)-maxErrorLine:]
		}
		if l := strings.TrimSpace(string(line)); l != "" {
			last = l
		}
	}
	io.Copy(io.Discard, r)
	return last
}

func newLineScanner(r io.Reader, limit int) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(limit, 64*1024)), limit)
	scanner.Split(splitLines(limit))
	return scanner
}

// splitLines splits on \n or \r. A line that fills limit bytes without a
// terminator is dropped up to its next terminator instead of failing the
// scan with bufio.ErrTooLong. Dropped parts come back as empty tokens so
// the lines buffered behind them are still returned without another read.
func splitLines(limit int) bufio.SplitFunc {
	skipping := false
	return func(data []byte, atEOF bool) (int, []byte, error) {
		if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
			if skipping {
				skipping = false
				return i + 1, data[:0], nil
			}
			return i + 1, data[:i], nil
		}
		if len(data) >= limit {
			skipping = true
			return len(data), data[:0], nil
		}
		if atEOF && len(data) > 0 {
			if skipping {
				return len(data), data[:0], nil
			}
			return len(data), data, nil
		}
		return 0, nil, nil
	}
}
