package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"training-launcher/core/logger"

	"github.com/spf13/cobra"
)

var noWait bool

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&noWait, "no-wait", false, "Return after submission instead of waiting for the job to finish. No locator is stored.")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Prepares data, submits the training job and stores its checkpoint locator.",
	Long: `The 'run' command executes the whole launch in order: resolve the account,
role and bucket, slice the dataset into train.csv and validation.csv, upload
both, submit the training job and poll it until it finishes. On success the
checkpoint address is stored under the run's locator name and printed.

Interrupting the command stops waiting. The remote job keeps running.`,
	Args: cobra.NoArgs,
	RunE: runRunCmd,
}

func runRunCmd(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	run, err := loadRunSpec(a.fs)
	if err != nil {
		return err
	}
	p := a.pipeline()

	if noWait {
		sub, err := p.Submit(ctx, run)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), sub.Handle.Name)
		return nil
	}

	locator, err := p.Run(ctx, run)
	if err != nil {
		return err
	}

	logger.WithField("locator", run.Checkpoint.LocatorName).Info("Run finished")
	fmt.Fprintln(cmd.OutOrStdout(), locator)
	return nil
}
