package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/marketlens/internal/app"
	"github.com/ternarybob/marketlens/internal/common"
)

var (
	// Command-line flags
	configFiles []string // Multiple --config flags supported, later files win
	serverPort  int
	serverHost  string
	envFile     string

	// Global state
	config *common.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:   "marketlens",
	Short: "Market intelligence reports from uploaded documents",
	Long: `MarketLens keeps a registry of uploaded market documents, asks an LLM
for a structured analysis of the selected ones, and exports the report as
Markdown, PDF, Excel or a rendered snapshot.

Running without a subcommand starts the HTTP server.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runServe,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringArrayVarP(&configFiles, "config", "c", nil, "Configuration file path (repeatable, later files override earlier ones)")
	flags.IntVarP(&serverPort, "port", "p", 0, "Server port (overrides config)")
	flags.StringVar(&serverHost, "host", "", "Server host (overrides config)")
	flags.StringVar(&envFile, "env", ".env", "Dotenv file with API keys, ignored when missing")

	rootCmd.AddCommand(serveCmd, ingestCmd, listCmd, removeCmd, customersCmd, analyzeCmd, versionCmd)
}

// setup runs the startup sequence shared by every command:
// 1. Load .env into the process environment
// 2. Load config (defaults -> file1 -> file2 -> ... -> env)
// 3. Apply CLI overrides (highest priority)
// 4. Initialize logger
func setup(cmd *cobra.Command, args []string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if len(configFiles) == 0 {
		if _, err := os.Stat("marketlens.toml"); err == nil {
			configFiles = append(configFiles, "marketlens.toml")
		} else if _, err := os.Stat("deployments/local/marketlens.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/marketlens.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		return fmt.Errorf("failed to load configuration %v: %w", configFiles, err)
	}

	common.ApplyFlagOverrides(config, serverPort, serverHost)
	logger = common.InitLogger(config)

	logger.Debug().
		Strs("config_files", configFiles).
		Str("badger_path", config.Storage.Badger.Path).
		Str("log_level", config.Logging.Level).
		Str("default_variant", config.Analysis.DefaultVariant).
		Msg("Resolved configuration")

	return nil
}

// openApp builds the application for one-shot commands; callers close it
func openApp() (*app.App, error) {
	application, err := app.New(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}
	return application, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Falls back to a console logger when setup never ran
		common.GetLogger().Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
