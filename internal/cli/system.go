package cli

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

var systemCmd = &cobra.Command{
	Use:   "system",
	Short: "Show host resources of the server",
	Long:  `Query the running server for CPU, memory, GPU and disk usage.`,
	RunE:  runSystem,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether the host can take a training job",
	Long: `Evaluate the server's preflight thresholds against its latest host sample.

Exit codes:
  0   training may start
  75  the host is over a limit`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(systemCmd)
	rootCmd.AddCommand(checkCmd)
}

// exitNoCapacity is EX_TEMPFAIL from sysexits.h.
const exitNoCapacity = 75

type systemReport struct {
	Allowed  bool     `json:"allowed"`
	Reasons  []string `json:"reasons"`
	Snapshot *struct {
		CPU struct {
			UsagePercent float64 `json:"usage_percent"`
		} `json:"cpu"`
		Memory struct {
			UsedBytes    float64 `json:"used_bytes"`
			TotalBytes   float64 `json:"total_bytes"`
			UsagePercent float64 `json:"usage_percent"`
		} `json:"memory"`
		GPUs []struct {
			Name           string  `json:"name"`
			UsagePercent   float64 `json:"usage_percent"`
			VRAMUsedBytes  float64 `json:"vram_used_bytes"`
			VRAMTotalBytes float64 `json:"vram_total_bytes"`
		} `json:"gpus"`
		Storage map[string]struct {
			FreeBytes  float64 `json:"free_bytes"`
			TotalBytes float64 `json:"total_bytes"`
		} `json:"storage"`
		Processes int `json:"processes"`
		Threads   int `json:"threads"`
	} `json:"snapshot"`
}

func fetchSystem() (*systemReport, []byte, error) {
	data, status, err := NewClient().Get("/api/system")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get system report: %w", err)
	}
	if status != http.StatusOK {
		return nil, nil, apiError(status, data)
	}

	var r systemReport
	if err := decode(data, &r); err != nil {
		return nil, nil, err
	}
	return &r, data, nil
}

const gb = 1024 * 1024 * 1024

func runSystem(cmd *cobra.Command, args []string) error {
	r, raw, err := fetchSystem()
	if err != nil {
		return err
	}

	if jsonOut {
		printRaw(raw)
		return nil
	}

	printHeader("System")
	s := r.Snapshot
	if s == nil {
		fmt.Println("No sample collected yet.")
		return nil
	}

	fmt.Printf("\nCPU:\n")
	fmt.Printf("  Usage: %.1f%%\n", s.CPU.UsagePercent)

	fmt.Printf("\nMemory:\n")
	fmt.Printf("  Usage: %.1f%%\n", s.Memory.UsagePercent)
	fmt.Printf("  Used:  %.1f / %.1f GB\n", s.Memory.UsedBytes/gb, s.Memory.TotalBytes/gb)

	if len(s.Storage) > 0 {
		fmt.Printf("\nStorage:\n")
		for _, path := range sortedKeys(s.Storage) {
			d := s.Storage[path]
			fmt.Printf("  %s: %.1f GB free / %.1f GB total\n", path, d.FreeBytes/gb, d.TotalBytes/gb)
		}
	}

	if len(s.GPUs) > 0 {
		fmt.Printf("\nGPU:\n")
		for i, g := range s.GPUs {
			fmt.Printf("  GPU %d %s: %.1f%% usage", i, g.Name, g.UsagePercent)
			if g.VRAMTotalBytes > 0 {
				fmt.Printf(", VRAM: %.1f / %.1f GB", g.VRAMUsedBytes/gb, g.VRAMTotalBytes/gb)
			}
			fmt.Println()
		}
	}

	fmt.Printf("\nProcesses: %d (%d threads)\n", s.Processes, s.Threads)
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	r, raw, err := fetchSystem()
	if err != nil {
		return err
	}

	if jsonOut {
		printRaw(raw)
	} else if r.Allowed {
		goodColor.Println("✓ Host can take a training job")
	} else {
		badColor.Println("✗ Host is over its limits")
		for _, reason := range r.Reasons {
			fmt.Printf("  - %s\n", reason)
		}
	}

	if !r.Allowed {
		os.Exit(exitNoCapacity)
	}
	return nil
}
