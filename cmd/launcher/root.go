package main

import (
	"fmt"

	"training-launcher/config"
	"training-launcher/core/logger"
	"training-launcher/core/spec"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	runFile  string
	logLevel string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "launcher",
	Short: "Launches sharded data parallel fine-tuning jobs on SageMaker.",
	Long: `launcher prepares a train/validation slice of a tabular dataset, uploads it,
submits a model parallel training job to SageMaker, waits for it and records
where the job left its checkpoints.

Process settings (region, role, bucket, database) come from the environment or
a .env file. The run itself is described by the YAML file given with --config;
without one the built-in GPT-Neo 2.7B on Alpaca defaults are used.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded

		level := cfg.LogLevel
		if cmd.Flags().Changed("log-level") {
			level = logLevel
		}
		logger.Init(level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&runFile, "config", "c", "", "Path to a run file (YAML). Defaults are used when empty.")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error). Overrides LOG_LEVEL.")
}

// loadRunSpec reads the run file, or returns the defaults when none was given
func loadRunSpec(fs afero.Fs) (*spec.RunSpec, error) {
	if runFile == "" {
		run := spec.DefaultRunSpec()
		return run, run.Validate()
	}

	data, err := afero.ReadFile(fs, runFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}
	return spec.ParseRunSpec(data)
}
