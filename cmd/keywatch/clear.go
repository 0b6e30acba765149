package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func clearCmd() *cobra.Command {
	var (
		flags backendFlags
		force bool
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every key",
		Long: `Delete every key in the store. Requires --force.

Examples:
  keywatch clear --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClear(cmd.Context(), flags, force)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Confirm deleting everything")

	return cmd
}

func runClear(ctx context.Context, flags backendFlags, force bool) error {
	if !force {
		return fmt.Errorf("refusing to delete every key without --force")
	}

	st, closer, err := flags.open(ctx)
	if err != nil {
		return err
	}
	defer closer.Close()

	if err := st.Clear(); err != nil {
		return err
	}
	success("store cleared")
	return nil
}
