package main

import (
	"context"
	"fmt"

	awsprovider "training-launcher/providers/aws"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status <job-name>",
	Short: "Shows the current state of a training job.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		a, err := newApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		desc, err := awsprovider.DescribeTrainingJob(ctx, a.aws.SageMaker, args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "job:        %s\n", desc.Name)
		fmt.Fprintf(out, "status:     %s (%s)\n", desc.Status, desc.ServiceStatus)
		if desc.SecondaryStatus != "" {
			fmt.Fprintf(out, "detail:     %s\n", desc.SecondaryStatus)
		}
		if desc.FailureReason != "" {
			fmt.Fprintf(out, "reason:     %s\n", desc.FailureReason)
		}
		if desc.CheckpointURI != "" {
			fmt.Fprintf(out, "checkpoint: %s\n", desc.CheckpointURI)
		}
		if desc.ModelArtifacts != "" {
			fmt.Fprintf(out, "artifacts:  %s\n", desc.ModelArtifacts)
		}
		return nil
	},
}
