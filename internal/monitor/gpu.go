package monitor

import (
	"context"
	"encoding/csv"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const nvidiaQuery = "--query-gpu=index,name,utilization.gpu,temperature.gpu,memory.used,memory.total"

// GPUCollector queries NVIDIA GPUs through nvidia-smi. Hosts without the
// tool report no GPUs.
type GPUCollector struct {
	bin string
}

func NewGPUCollector() *GPUCollector {
	bin, err := exec.LookPath("nvidia-smi")
	if err != nil {
		bin = ""
	}
	return &GPUCollector{bin: bin}
}

func (c *GPUCollector) Name() string {
	return "gpu"
}

func (c *GPUCollector) Available() bool {
	return c.bin != ""
}

func (c *GPUCollector) Collect(ctx context.Context, s *Snapshot) error {
	if !c.Available() {
		return nil
	}

	out, err := exec.CommandContext(ctx, c.bin, nvidiaQuery, "--format=csv,noheader,nounits").Output()
	if err != nil {
		return fmt.Errorf("nvidia-smi: %w", err)
	}

	gpus, err := parseNvidiaSMI(string(out))
	if err != nil {
		return err
	}
	s.GPUs = gpus
	return nil
}

// parseNvidiaSMI reads the CSV emitted by nvidia-smi with nvidiaQuery.
// Memory columns are MiB.
func parseNvidiaSMI(out string) ([]GPUState, error) {
	r := csv.NewReader(strings.NewReader(out))
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = 6

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse nvidia-smi output: %w", err)
	}

	gpus := make([]GPUState, 0, len(records))
	for _, rec := range records {
		index, _ := strconv.Atoi(rec[0])
		util, _ := strconv.ParseFloat(rec[2], 64)
		temp, _ := strconv.Atoi(rec[3])
		used, _ := strconv.ParseUint(rec[4], 10, 64)
		total, _ := strconv.ParseUint(rec[5], 10, 64)

		gpus = append(gpus, GPUState{
			Index:          index,
			Name:           rec[1],
			UsagePercent:   util,
			Temperature:    temp,
			VRAMUsedBytes:  used << 20,
			VRAMTotalBytes: total << 20,
		})
	}
	return gpus, nil
}
