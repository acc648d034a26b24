package cli

import (
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
)

var shutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "Stop the running ensemblr server",
	Long: `Stop the server by sending SIGTERM to the process specified in the PID file.
A running training job is cancelled.`,
	RunE: runShutdown,
}

func init() {
	shutdownCmd.Flags().StringVar(&pidFile, "pid-file", "", "PID file path (overrides config)")
	rootCmd.AddCommand(shutdownCmd)
}

func runShutdown(cmd *cobra.Command, args []string) error {
	pid, err := signalServer(syscall.SIGTERM)
	if err != nil {
		return err
	}

	if jsonOut {
		fmt.Printf(`{"status":"stopped","pid":%d}`+"\n", pid)
	} else {
		fmt.Printf("Sent SIGTERM to process %d\n", pid)
	}
	return nil
}
