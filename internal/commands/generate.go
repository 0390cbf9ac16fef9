// internal/commands/generate.go
package scour

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/k0kubun/pp"
	"github.com/spf13/cobra"

	"github.com/scourlabs/scour/internal/backend"
	"github.com/scourlabs/scour/internal/chunker"
	"github.com/scourlabs/scour/internal/pipeline"
	"github.com/scourlabs/scour/internal/tui"
)

var (
	genInstructions string
	genChunkSize    int
	genMaxIter      int
	genBudget       int
	genOverlap      int
	genMode         string
	genOutput       string
	genReport       string
	genStateFile    string
	genTUI          bool
)

// generateCmd runs the full pipeline against a data file and writes the
// merged cleaning artifact.
var generateCmd = &cobra.Command{
	Use:   "generate FILE",
	Short: "Generate cleaning functions from a data file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(args[0]); err != nil {
			return fmt.Errorf("input file: %w", err)
		}

		b, err := createBackend(currentConfig)
		if err != nil {
			return err
		}
		instructions, err := readInstructions(genInstructions)
		if err != nil {
			return err
		}

		opts := pipeline.Options{
			FilePath:          args[0],
			Instructions:      instructions,
			ChunkSize:         pick(genChunkSize, currentConfig.EffectiveChunkSize()),
			MaxIterations:     pick(genMaxIter, currentConfig.EffectiveMaxIterations()),
			ContextBudget:     pick(genBudget, currentConfig.EffectiveContextBudget()),
			Overlap:           pick(genOverlap, currentConfig.Overlap),
			Mode:              chunker.Mode(flagOr(cmd, "mode", genMode, currentConfig.Mode)),
			StateFile:         flagOr(cmd, "state-file", genStateFile, currentConfig.StateFile),
			OutputPath:        flagOr(cmd, "output", genOutput, currentConfig.Output),
			ReportPath:        flagOr(cmd, "report", genReport, currentConfig.Report),
			Retry:             retryPolicy(),
			ValidationTimeout: currentConfig.ValidationTimeout(),
		}
		if currentConfig.Debug {
			pp.Println(opts)
		}

		cleaner := pipeline.New(b, opts)
		return runCleaner(cmd.Context(), cleaner, genTUI || currentConfig.TUI)
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&genInstructions, "instructions", "i", "", "cleaning instructions (text, @file.txt, or - for stdin)")
	generateCmd.Flags().IntVar(&genChunkSize, "chunk-size", 0, "items per chunk (default 50)")
	generateCmd.Flags().IntVar(&genMaxIter, "max-iterations", 0, "max iterations per chunk (default 5)")
	generateCmd.Flags().IntVar(&genBudget, "context-budget", 0, "character budget for the existing-functions summary (default 8000)")
	generateCmd.Flags().IntVar(&genOverlap, "overlap", 0, "characters shared between consecutive text chunks")
	generateCmd.Flags().StringVar(&genMode, "mode", "auto", "processing mode: auto, structured, or text")
	generateCmd.Flags().StringVarP(&genOutput, "output", "o", "cleaning_functions.go", "output file path")
	generateCmd.Flags().StringVar(&genReport, "report", "cleaning_report.md", "report file path (empty to disable)")
	generateCmd.Flags().StringVar(&genStateFile, "state-file", "", "checkpoint file for resume")
	generateCmd.Flags().BoolVar(&genTUI, "tui", false, "enable the terminal dashboard")
}

// pick returns value when set, falling back otherwise.
func pick(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}

// flagOr resolves a string setting: an explicitly passed flag wins, then the
// config file's value, then the flag's default.
func flagOr(cmd *cobra.Command, name, flagValue, configValue string) string {
	if cmd.Flags().Changed(name) || strings.TrimSpace(configValue) == "" {
		return flagValue
	}
	return configValue
}

// retryPolicy derives the backend retry policy from the configuration.
func retryPolicy() backend.RetryPolicy {
	policy := backend.DefaultRetryPolicy()
	policy.MaxAttempts = currentConfig.EffectiveRetryAttempts()
	return policy
}

// runCleaner executes the cleaner with either the bubbletea dashboard or a
// plain colored progress printer.
func runCleaner(ctx context.Context, cleaner *pipeline.Cleaner, useTUI bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if useTUI {
		return tui.Run(ctx, cleaner)
	}
	cleaner.SetObserver(plainObserver())
	return cleaner.Run(ctx)
}

// plainObserver prints progress lines for non-TUI runs.
func plainObserver() pipeline.Observer {
	return func(ev pipeline.Event) {
		switch ev.Type {
		case pipeline.EventChunkStart:
			color.Cyan("chunk %d/%d", ev.ChunkIndex+1, ev.TotalChunks)
		case pipeline.EventFunctionGenerated:
			color.Green("  generated: %s", ev.FunctionName)
		case pipeline.EventValidationFailed:
			color.Yellow("  validation failed: %s", ev.Message)
		case pipeline.EventComplete:
			color.Cyan("complete")
		}
	}
}
