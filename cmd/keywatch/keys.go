package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/keywatch-dev/keywatch/pkg/store"
)

func keysCmd() *cobra.Command {
	var (
		flags backendFlags
		long  bool
	)

	cmd := &cobra.Command{
		Use:   "keys",
		Short: "List stored keys",
		Long: `List every key in the store, one per line.

With --long, each line also shows the stored kind.

Examples:
  keywatch keys
  keywatch keys --long`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeys(cmd.Context(), flags, long)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVarP(&long, "long", "l", false, "Show the kind next to each key")

	return cmd
}

func runKeys(ctx context.Context, flags backendFlags, long bool) error {
	st, closer, err := flags.open(ctx)
	if err != nil {
		return err
	}
	defer closer.Close()

	if long {
		enum, ok := st.(store.Enumerator)
		if !ok {
			return fmt.Errorf("backend cannot enumerate entries; drop --long")
		}
		entries, err := enum.Entries()
		if err != nil {
			return err
		}
		keys, err := st.Keys()
		if err != nil {
			return err
		}
		for _, key := range keys {
			fmt.Printf("%-8s %s\n", entries[key].Kind, key)
		}
		return nil
	}

	keys, err := st.Keys()
	if err != nil {
		return err
	}
	for _, key := range keys {
		fmt.Println(key)
	}
	return nil
}
