package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/keywatch-dev/keywatch/pkg/store"
)

func setCmd() *cobra.Command {
	var (
		flags    backendFlags
		typeName string
	)

	cmd := &cobra.Command{
		Use:   "set <key> <value>...",
		Short: "Store a value under a key",
		Long: `Store a value under a key.

The value is parsed according to --type. The strings kind takes one
element per argument; every other kind takes exactly one value.
Overwriting a key with a different kind is allowed; the old kind is
simply replaced.

Examples:
  keywatch set greeting hello
  keywatch set ui.dark true --type bool
  keywatch set volume 7 --type int
  keywatch set tags red green blue --type strings`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(cmd.Context(), flags, args[0], args[1:], typeName)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&typeName, "type", "t", "string", "Kind to store: bool, int, float, string or strings")

	return cmd
}

func runSet(ctx context.Context, flags backendFlags, key string, values []string, typeName string) error {
	kind, err := store.ParseKind(typeName)
	if err != nil {
		return err
	}
	entry, err := parseEntry(kind, values)
	if err != nil {
		return err
	}

	st, closer, err := flags.open(ctx)
	if err != nil {
		return err
	}
	defer closer.Close()

	if err := writeEntry(st, key, entry); err != nil {
		return err
	}
	success("%s = %v", key, entry.Value())
	return nil
}

// parseEntry builds an entry of the given kind from command arguments.
func parseEntry(kind store.Kind, values []string) (store.Entry, error) {
	if kind != store.KindStringSlice && len(values) != 1 {
		return store.Entry{}, fmt.Errorf("%s takes exactly one value, got %d", kind, len(values))
	}

	switch kind {
	case store.KindBool:
		v, err := strconv.ParseBool(values[0])
		if err != nil {
			return store.Entry{}, fmt.Errorf("parsing %q as bool: %w", values[0], err)
		}
		return store.BoolEntry(v), nil
	case store.KindInt:
		v, err := strconv.ParseInt(values[0], 10, 64)
		if err != nil {
			return store.Entry{}, fmt.Errorf("parsing %q as int: %w", values[0], err)
		}
		return store.IntEntry(v), nil
	case store.KindFloat:
		v, err := strconv.ParseFloat(values[0], 64)
		if err != nil {
			return store.Entry{}, fmt.Errorf("parsing %q as float: %w", values[0], err)
		}
		return store.FloatEntry(v), nil
	case store.KindString:
		return store.StringEntry(values[0]), nil
	default:
		return store.StringSliceEntry(values), nil
	}
}
