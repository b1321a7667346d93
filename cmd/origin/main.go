package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"name-origin/internal/config"
	"name-origin/internal/logging"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
}

func main() {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:           "origin",
		Short:         "Train and run name origin classifiers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (defaults to $ORIGIN_CONFIG)")
	rootCmd.PersistentFlags().String("model", "", "Artifact bundle path (overrides config)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(
		trainCmd(a),
		evaluateCmd(a),
		predictCmd(a),
		extractCmd(a),
		modelsCmd(a),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		cfg.ModelPath = model
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	a.cfg = cfg
	a.logger = logging.New(cfg.LogLevel, cliLogFormat(cfg))
	logging.Install(a.logger)
	return nil
}

// cliLogFormat is the configured format, or text when none was set.
func cliLogFormat(cfg *config.Config) string {
	if cfg.LogFormat == "" {
		return "text"
	}
	return cfg.LogFormat
}
