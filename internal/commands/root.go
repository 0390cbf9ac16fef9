// internal/commands/root.go
package scour

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/scourlabs/scour/internal/appconfig"
	"github.com/scourlabs/scour/internal/logging"
)

var (
	cfgFile       string
	currentConfig *appconfig.Config
	appVersion    = "dev"
	appCommit     = "none"
	appDate       = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "scour",
	Short: "scour — LLM-powered incremental data cleaning pipeline",
	Long: `scour feeds a data file to an LLM backend one chunk at a time, collects
generated Go cleaning functions, validates each in an interpreter sandbox,
and merges the survivors into a single composed cleaning_functions.go.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := appconfig.Load(cfgFile)
		if err != nil {
			return err
		}
		applyOverrides(&cfg)
		currentConfig = &cfg

		if err := logging.Init(currentConfig.LogFilePath()); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen once
// to the rootCmd.
func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", appVersion, appCommit, appDate)

	defer logging.Close()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", appconfig.DefaultConfigPath, "config file (e.g., config/config.json)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug output")
	rootCmd.PersistentFlags().String("logFile", "", "path to the log file")
	rootCmd.PersistentFlags().StringP("provider", "p", "", "LLM provider (openai or ollama)")
	rootCmd.PersistentFlags().StringP("model", "m", "", "model name")
	rootCmd.PersistentFlags().String("base-url", "", "API base URL (for openai-compatible servers)")
	rootCmd.PersistentFlags().String("api-key", "", "API key (or use OPENAI_API_KEY env var)")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("logFile", rootCmd.PersistentFlags().Lookup("logFile"))
	_ = viper.BindPFlag("provider", rootCmd.PersistentFlags().Lookup("provider"))
	_ = viper.BindPFlag("model", rootCmd.PersistentFlags().Lookup("model"))
	_ = viper.BindPFlag("baseUrl", rootCmd.PersistentFlags().Lookup("base-url"))
	_ = viper.BindPFlag("apiKey", rootCmd.PersistentFlags().Lookup("api-key"))
	_ = viper.BindEnv("apiKey", "OPENAI_API_KEY")
}

// applyOverrides layers the viper-bound flag and environment values over the
// file configuration. Flags and env vars win; unset values leave the file's
// settings alone.
func applyOverrides(cfg *appconfig.Config) {
	if v := viper.GetString("provider"); v != "" {
		cfg.Provider = v
	}
	if v := viper.GetString("model"); v != "" {
		cfg.Model = v
	}
	if v := viper.GetString("baseUrl"); v != "" {
		cfg.BaseURL = v
	}
	if v := viper.GetString("apiKey"); v != "" {
		cfg.APIKey = v
	}
	if v := viper.GetString("logFile"); v != "" {
		cfg.LogFile = v
	}
	if viper.GetBool("debug") {
		cfg.Debug = true
	}
}
