package main

import (
	"context"
	"fmt"

	"training-launcher/core/pipeline"
	"training-launcher/storage"

	"github.com/spf13/cobra"
)

// Bucket name used inside the staging directory
const stagingBucket = "staging"

var stageDir string

func init() {
	rootCmd.AddCommand(prepareCmd)

	prepareCmd.Flags().StringVar(&stageDir, "stage-dir", "", "Also upload the slices into a local directory laid out like the remote bucket.")
}

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Writes the train and validation slices locally without touching AWS.",
	Args:  cobra.NoArgs,
	RunE:  runPrepareCmd,
}

func runPrepareCmd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	run, err := loadRunSpec(a.fs)
	if err != nil {
		return err
	}

	p := pipeline.New(pipeline.Deps{Hub: a.hub(), Fs: a.fs})
	files, err := p.Prepare(ctx, run)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\t%d rows\n", files.TrainPath, files.TrainRows)
	fmt.Fprintf(out, "%s\t%d rows\n", files.ValidationPath, files.ValidationRows)

	if stageDir == "" {
		return nil
	}

	staging, err := storage.NewLocalObjectStore(a.fs, stageDir)
	if err != nil {
		return err
	}
	if err := staging.CreateBucket(ctx, stagingBucket); err != nil {
		return err
	}
	locations, err := storage.NewUploader(staging, a.fs).UploadDataset(ctx, stagingBucket, run.Dataset.S3Prefix, *files)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, locations.TrainURI)
	fmt.Fprintln(out, locations.ValidationURI)
	return nil
}
