// Package cmd implements the CLI commands for ordinancepipe using Cobra.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/ordinancepipe/config"
)

var (
	cfg    *config.Config
	logger *slog.Logger

	flagLogLevel  string
	flagLogFormat string
	flagProvider string
	flagModel    string
)

var rootCmd = &cobra.Command{
	Use:   "ordinancepipe",
	Short: "ordinancepipe — find, summarize and score municipal zoning ordinances",
	Long: `ordinancepipe downloads a zoning ordinance, extracts its text, summarizes it
with a language model and scores the summary against a configurable rubric.

Usage:
  ordinancepipe find "<city>"
  ordinancepipe analyze <url> [flags]
  ordinancepipe serve`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if flagProvider != "" {
			cfg.LLM.Provider = strings.ToLower(flagProvider)
		}
		if flagModel != "" {
			cfg.LLM.Model = flagModel
		}
		level := cfg.LogLevel
		if flagLogLevel != "" {
			level = flagLogLevel
		}
		format := cfg.LogFormat
		if flagLogFormat != "" {
			format = flagLogFormat
		}
		logger = newLogger(os.Stderr, level, format)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (default from LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format: json or text (default from LOG_FORMAT)")
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "", "LLM provider: anthropic, openai, ollama, gemini (default from LLM_PROVIDER)")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "LLM model name (default from LLM_MODEL)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
