// Package cli provides the command-line interface for personarag.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dshills/personarag/internal/app"
	"github.com/dshills/personarag/internal/config"
)

var (
	// Version is set at build time.
	Version   = "dev"
	BuildTime = "unknown"

	// Global flags
	envFile  string
	jsonOut  bool
	logLevel string

	// Loaded in PersistentPreRunE
	cfg         config.Config
	engine      *app.App
	logger      *slog.Logger
	closeLogger func() error
)

// commands that never touch the store
var offline = map[string]bool{
	"version": true,
	"help":    true,
	"expand":  true,
}

var rootCmd = &cobra.Command{
	Use:   "personarag",
	Short: "Personalized retrieval over coaching knowledge",
	Long: `personarag retrieves coaching content for a user by fusing vector
similarity with synonym-expanded keyword search, and assembles the user's
cached personalization context for prompt construction.

Run 'personarag serve' to expose the engine over MCP (stdio) or HTTP.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if envFile != "" {
			cfg, err = config.Load(envFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if logLevel != "" {
			cfg.LogLevel = config.ParseLogLevel(logLevel)
		}

		logger, closeLogger = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		slog.SetDefault(logger)

		if offline[cmd.Name()] {
			return nil
		}

		engine, err = app.New(cmd.Context(), cfg, logger)
		if err != nil {
			return fmt.Errorf("start engine: %w", err)
		}
		return nil
	},
}

// Execute runs the root command until ctx is cancelled
func Execute(ctx context.Context) error {
	rootCmd.Version = Version
	defer shutdown()
	return rootCmd.ExecuteContext(ctx)
}

// shutdown releases what PersistentPreRunE opened
func shutdown() {
	if engine != nil {
		if err := engine.Close(); err != nil {
			logger.Warn("close engine", "error", err)
		}
		engine = nil
	}
	if closeLogger != nil {
		_ = closeLogger()
		closeLogger = nil
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "path to a .env file (default: ./.env when present)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print JSON instead of text")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override PERSONARAG_LOG_LEVEL")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(expandCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

// printJSON writes v indented to w
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
