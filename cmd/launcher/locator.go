package main

import (
	"context"
	"fmt"

	"training-launcher/core/models"
	"training-launcher/storage"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(locatorCmd)
	locatorCmd.AddCommand(locatorGetCmd, locatorSetCmd)
}

var locatorCmd = &cobra.Command{
	Use:   "locator",
	Short: "Reads or writes stored locators.",
}

var locatorGetCmd = &cobra.Command{
	Use:   "get [name]",
	Short: "Prints a stored locator, " + models.DefaultLocatorName + " by default.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		name := models.DefaultLocatorName
		if len(args) == 1 {
			name = args[0]
		}

		a, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.Close()

		value, err := storage.NewCheckpointManager(a.locators, name).GetLatestCheckpoint(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), value)
		return nil
	},
}

var locatorSetCmd = &cobra.Command{
	Use:   "set <name> <value>",
	Short: "Stores a locator by hand, e.g. to resume from an older checkpoint.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		a, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.locators.PutLocator(ctx, models.Locator{Name: args[0], Value: args[1]})
	},
}
