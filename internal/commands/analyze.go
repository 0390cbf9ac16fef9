// internal/commands/analyze.go
package scour

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/scourlabs/scour/internal/chunker"
	"github.com/scourlabs/scour/internal/pipeline"
)

var (
	anInstructions string
	anChunkSize    int
	anMaxIter      int
	anMode         string
)

// analyzeCmd runs a dry-run pass: chunks are analyzed and issues reported,
// but no functions are generated and nothing is written.
var analyzeCmd = &cobra.Command{
	Use:   "analyze FILE",
	Short: "Dry-run analysis without generating functions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(args[0]); err != nil {
			return fmt.Errorf("input file: %w", err)
		}

		b, err := createBackend(currentConfig)
		if err != nil {
			return err
		}
		instructions, err := readInstructions(anInstructions)
		if err != nil {
			return err
		}

		cleaner := pipeline.New(b, pipeline.Options{
			FilePath:      args[0],
			Instructions:  instructions,
			ChunkSize:     pick(anChunkSize, currentConfig.EffectiveChunkSize()),
			MaxIterations: pick(anMaxIter, currentConfig.EffectiveMaxIterations()),
			ContextBudget: currentConfig.EffectiveContextBudget(),
			Mode:          chunker.Mode(flagOr(cmd, "mode", anMode, currentConfig.Mode)),
			DryRun:        true,
			Retry:         retryPolicy(),
		})
		cleaner.SetObserver(func(ev pipeline.Event) {
			if ev.Type != pipeline.EventChunkDone {
				return
			}
			unsolved := 0
			for _, issue := range ev.Issues {
				if !issue.Solved {
					unsolved++
				}
			}
			color.Cyan("chunk %d/%d: %d issues (%d unsolved)", ev.ChunkIndex+1, ev.TotalChunks, len(ev.Issues), unsolved)
			for _, issue := range ev.Issues {
				fmt.Printf("  - %s\n", issue.Description)
			}
		})
		return cleaner.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&anInstructions, "instructions", "i", "", "cleaning instructions (text, @file.txt, or - for stdin)")
	analyzeCmd.Flags().IntVar(&anChunkSize, "chunk-size", 0, "items per chunk (default 50)")
	analyzeCmd.Flags().IntVar(&anMaxIter, "max-iterations", 0, "max iterations per chunk (default 5)")
	analyzeCmd.Flags().StringVar(&anMode, "mode", "auto", "processing mode: auto, structured, or text")
}
