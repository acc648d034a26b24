package training

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/haskel/ensemblr/internal/progress"
)

func collect() (*[]progress.Entry, EpochFunc) {
	var got []progress.Entry
	return &got, func(e progress.Entry) { got = append(got, e) }
}

func TestSimulatedTrainer(t *testing.T) {
	artifact := filepath.Join(t.TempDir(), "models", "resnet_model.h5")
	tr := &SimulatedTrainer{}

	got, report := collect()
	res, err := tr.Train(context.Background(), TrainRequest{
		Variant:      "resnet",
		ArtifactPath: artifact,
		Classes:      []string{"cats", "dogs"},
		Epochs:       5,
	}, report)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	if len(*got) != 5 || res.Epochs != 5 {
		t.Fatalf("expected 5 epochs, got %d reports and %d epochs", len(*got), res.Epochs)
	}
	for i := 1; i < len(*got); i++ {
		if (*got)[i].ValAccuracy < (*got)[i-1].ValAccuracy {
			t.Errorf("learning curve should not decrease: %v", *got)
		}
	}
	if res.BestValAccuracy < res.FinalAccuracy || res.FinalAccuracy <= 0 || res.FinalAccuracy >= 1 {
		t.Errorf("unexpected result %+v", res)
	}

	data, err := os.ReadFile(artifact)
	if err != nil {
		t.Fatalf("expected artifact: %v", err)
	}
	var a SimulatedArtifact
	if err := json.Unmarshal(data, &a); err != nil {
		t.Fatalf("artifact should be JSON: %v", err)
	}
	if a.Variant != "resnet" || !slices.Equal(a.Classes, []string{"cats", "dogs"}) {
		t.Errorf("unexpected artifact %+v", a)
	}

	// deterministic per variant
	again, report2 := collect()
	tr.Train(context.Background(), TrainRequest{Variant: "resnet", ArtifactPath: artifact, Epochs: 5}, report2)
	if !slices.Equal(*got, *again) {
		t.Error("simulated curve should be deterministic")
	}
}

func TestSimulatedTrainer_Failure(t *testing.T) {
	tr := &SimulatedTrainer{FailVariants: map[string]bool{"densenet": true}}
	artifact := filepath.Join(t.TempDir(), "densenet_model.h5")

	_, report := collect()
	_, err := tr.Train(context.Background(), TrainRequest{Variant: "densenet", ArtifactPath: artifact, Epochs: 3}, report)
	if err == nil {
		t.Fatal("expected failure")
	}
	if _, err := os.Stat(artifact); !os.IsNotExist(err) {
		t.Error("failed run must not write an artifact")
	}
}

func TestSimulatedTrainer_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, report := collect()
	_, err := (&SimulatedTrainer{}).Train(ctx, TrainRequest{Variant: "resnet", ArtifactPath: filepath.Join(t.TempDir(), "a"), Epochs: 3}, report)
	if err == nil {
		t.Error("expected cancelled context to stop training")
	}
}

func TestExpandArgs(t *testing.T) {
	got := expandArgs(
		[]string{"train.py", "--model={variant}", "--data", "{data_dir}", "--out", "{artifact}", "--epochs", "{epochs}"},
		TrainRequest{Variant: "mobilenet", DataDir: "data", ArtifactPath: "models/mobilenet_model.h5", Epochs: 7},
	)
	want := []string{"train.py", "--model=mobilenet", "--data", "data", "--out", "models/mobilenet_model.h5", "--epochs", "7"}
	if !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestCommandTrainer(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	artifact := filepath.Join(t.TempDir(), "mobilenet_model.h5")
	script := strings.Join([]string{
		`echo "loading data"`,
		`echo '{"epoch": 1, "val_accuracy": 0.55}'`,
		`echo '{"epoch": 2, "val_accuracy": 0.71}'`,
		`echo '{"epoch": 3, "val_accuracy": 0.69}'`,
		`echo '{"final_accuracy": 0.7, "best_val_accuracy": 0.71}'`,
		`printf weights > "$1"`,
	}, "\n")

	tr := &CommandTrainer{
		Command: "sh",
		Args:    []string{"-c", script, "trainer", "{artifact}"},
		Logger:  testLogger(),
	}

	got, report := collect()
	res, err := tr.Train(context.Background(), TrainRequest{Variant: "mobilenet", ArtifactPath: artifact, Epochs: 3}, report)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	if len(*got) != 3 || (*got)[1].ValAccuracy != 0.71 {
		t.Errorf("unexpected epoch reports %v", *got)
	}
	if res.Epochs != 3 || res.FinalAccuracy != 0.7 || res.BestValAccuracy != 0.71 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestCommandTrainer_Failures(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	tests := []struct {
		name    string
		script  string
		wantMsg string
	}{
		{"non-zero exit", `echo "CUDA out of memory" >&2; exit 3`, "CUDA out of memory"},
		{"no artifact", `echo '{"epoch": 1, "val_accuracy": 0.5}'`, "no artifact"},
		{"no events", `echo "done"; printf weights > "$1"`, "reported no epochs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &CommandTrainer{Command: "sh", Args: []string{"-c", tt.script, "trainer", "{artifact}"}, Logger: testLogger()}
			_, report := collect()
			_, err := tr.Train(context.Background(), TrainRequest{
				Variant:      "resnet",
				ArtifactPath: filepath.Join(t.TempDir(), "resnet_model.h5"),
			}, report)
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected error containing %q, got %v", tt.wantMsg, err)
			}
		})
	}
}

// filler prints n KiB of 'x' without a newline.
func filler(kib int, stream string) string {
	return fmt.Sprintf(`dd if=/dev/zero bs=1024 count=%d 2>/dev/null | tr '\0' x %s`, kib, stream)
}

func TestCommandTrainer_OutputEdgeCases(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	tests := []struct {
		name       string
		script     []string
		wantEpochs int
		wantFinal  float64
	}{
		{
			name: "long stderr lines",
			script: []string{
				filler(100, ">&2"),
				`echo >&2`,
				filler(200, ">&2"),
				`echo '{"epoch": 1, "val_accuracy": 0.6}'`,
			},
			wantEpochs: 1,
			wantFinal:  0.6,
		},
		{
			name: "stdout line over the limit",
			script: []string{
				filler(2048, ""),
				`echo`,
				`echo '{"epoch": 1, "val_accuracy": 0.6}'`,
				`echo '{"epoch": 2, "val_accuracy": 0.75}'`,
				`echo '{"final_accuracy": 0.8, "best_val_accuracy": 0.75}'`,
			},
			wantEpochs: 2,
			wantFinal:  0.8,
		},
		{
			name: "carriage return progress",
			script: []string{
				`printf '10%%\r50%%\r{"epoch": 1, "val_accuracy": 0.5}\r100%%\n'`,
				`printf '{"final_accuracy": 0.52}\n'`,
			},
			wantEpochs: 1,
			wantFinal:  0.52,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			artifact := filepath.Join(t.TempDir(), "resnet_model.h5")
			script := strings.Join(append(tt.script, `printf weights > "$1"`), "\n")
			tr := &CommandTrainer{
				Command: "sh",
				Args:    []string{"-c", script, "trainer", "{artifact}"},
				Logger:  testLogger(),
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			got, report := collect()
			res, err := tr.Train(ctx, TrainRequest{Variant: "resnet", ArtifactPath: artifact}, report)
			if err != nil {
				t.Fatalf("Train failed: %v", err)
			}
			if len(*got) != tt.wantEpochs || res.Epochs != tt.wantEpochs {
				t.Errorf("expected %d epochs, got reports %v and result %+v", tt.wantEpochs, *got, res)
			}
			if res.FinalAccuracy != tt.wantFinal {
				t.Errorf("expected final accuracy %v, got %v", tt.wantFinal, res.FinalAccuracy)
			}
		})
	}
}

func TestCommandTrainer_LastStderrLineIsBounded(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	script := filler(32, ">&2") + "\nexit 1"
	tr := &CommandTrainer{Command: "sh", Args: []string{"-c", script}, Logger: testLogger()}
	_, report := collect()
	_, err := tr.Train(context.Background(), TrainRequest{
		Variant:      "resnet",
		ArtifactPath: filepath.Join(t.TempDir(), "resnet_model.h5"),
	}, report)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(err.Error()) > maxErrorLine+100 {
		t.Errorf("error message not bounded: %d bytes", len(err.Error()))
	}
	if !strings.HasSuffix(err.Error(), "xxxx") {
		t.Errorf("expected the tail of the stderr line, got %q", err.Error()[:50])
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"newlines", "a\nb\n", []string{"a", "b"}},
		{"carriage returns", "10%\r20%\rdone\n", []string{"10%", "20%", "done"}},
		{"crlf", "a\r\nb", []string{"a", "b"}},
		{"oversized line dropped", "ab\ncdefghij\nk\rl", []string{"ab", "k", "l"}},
		{"oversized trailing line", "ab\ncdefghij", []string{"ab"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner := newLineScanner(strings.NewReader(tt.input), 4)
			var got []string
			for scanner.Scan() {
				if line := scanner.Text(); line != "" {
					got = append(got, line)
				}
			}
			if err := scanner.Err(); err != nil {
				t.Fatalf("scan failed: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
