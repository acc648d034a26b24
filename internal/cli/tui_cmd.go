package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/haskel/ensemblr/internal/cli/tui"
)

var (
	refreshInterval time.Duration
	inline          bool
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the live training dashboard",
	Long: `Launch an interactive terminal dashboard showing the current training
job, model rankings and host resources.

Examples:
  ensemblr tui
  ensemblr tui --refresh 500ms
  ensemblr tui --host 10.0.0.1
  ensemblr tui --inline`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().DurationVar(&refreshInterval, "refresh", time.Second, "dashboard refresh interval")
	tuiCmd.Flags().BoolVar(&inline, "inline", false, "render without the alternate screen")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	return tui.Run(cmd.Context(), tui.Config{
		ServerURL:       GetServerURL(),
		RefreshInterval: refreshInterval,
		User:            user,
		Password:        password,
		Inline:          inline,
	})
}
