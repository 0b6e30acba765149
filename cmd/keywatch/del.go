package main

import (
	"context"

	"github.com/spf13/cobra"
)

func delCmd() *cobra.Command {
	var flags backendFlags

	cmd := &cobra.Command{
		Use:   "del <key>...",
		Short: "Delete keys",
		Long: `Delete one or more keys. Deleting an absent key is not an error.

Examples:
  keywatch del greeting
  keywatch del ui.dark volume`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDel(cmd.Context(), flags, args)
		},
	}

	flags.register(cmd)

	return cmd
}

func runDel(ctx context.Context, flags backendFlags, keys []string) error {
	st, closer, err := flags.open(ctx)
	if err != nil {
		return err
	}
	defer closer.Close()

	for _, key := range keys {
		if err := st.Remove(key); err != nil {
			return err
		}
	}
	success("removed %d key(s)", len(keys))
	return nil
}
