package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/cognito/internal/config"
	"github.com/aretw0/cognito/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cognito",
	Short: "Cognito routes questions through a reviewed, signed multi-agent workflow",
	Long: `Cognito sends each query through intake, a specialist, risk assessment and
self-critique, then signs and audits the answer. Critical tool calls pause for
human approval.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
}

// loadConfig reads the config named by --config and applies --log-level.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.New(level), nil
}

// setup loads the configuration and wires the service.
func setup(cmd *cobra.Command) (*config.Config, *app, *slog.Logger, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	a, err := build(cfg, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize cognito: %w", err)
	}
	return cfg, a, logger, nil
}
