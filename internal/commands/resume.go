// internal/commands/resume.go
package scour

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scourlabs/scour/internal/pipeline"
)

var (
	resOutput string
	resReport string
	resTUI    bool
)

// resumeCmd continues an interrupted run from its checkpoint file. Tuning
// parameters are taken from the checkpoint so the chunk sequence is
// reproduced exactly.
var resumeCmd = &cobra.Command{
	Use:   "resume STATE_FILE",
	Short: "Resume from a checkpoint file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(args[0]); err != nil {
			return fmt.Errorf("state file: %w", err)
		}

		b, err := createBackend(currentConfig)
		if err != nil {
			return err
		}

		cleaner, err := pipeline.Resume(b, args[0], pipeline.Options{
			OutputPath:        flagOr(cmd, "output", resOutput, currentConfig.Output),
			ReportPath:        flagOr(cmd, "report", resReport, currentConfig.Report),
			Retry:             retryPolicy(),
			ValidationTimeout: currentConfig.ValidationTimeout(),
		})
		if err != nil {
			return err
		}
		return runCleaner(cmd.Context(), cleaner, resTUI || currentConfig.TUI)
	},
}

func init() {
	rootCmd.AddCommand(resumeCmd)

	resumeCmd.Flags().StringVarP(&resOutput, "output", "o", "cleaning_functions.go", "output file path")
	resumeCmd.Flags().StringVar(&resReport, "report", "cleaning_report.md", "report file path (empty to disable)")
	resumeCmd.Flags().BoolVar(&resTUI, "tui", false, "enable the terminal dashboard")
}
