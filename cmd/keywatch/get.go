package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/keywatch-dev/keywatch/pkg/store"
)

func getCmd() *cobra.Command {
	var (
		flags    backendFlags
		typeName string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value stored under a key",
		Long: `Print the value stored under a key.

Without --type the entry is looked up by enumeration and printed in
whatever kind it was stored with. With --type the key is read through
the matching typed getter and a kind mismatch is an error.

Examples:
  keywatch get ui.dark
  keywatch get volume --type int
  keywatch get tags --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd.Context(), flags, args[0], typeName, asJSON)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&typeName, "type", "t", "", "Expected kind: bool, int, float, string or strings")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the canonical JSON entry")

	return cmd
}

func runGet(ctx context.Context, flags backendFlags, key, typeName string, asJSON bool) error {
	st, closer, err := flags.open(ctx)
	if err != nil {
		return err
	}
	defer closer.Close()

	var entry store.Entry
	if typeName != "" {
		entry, err = typedGet(st, key, typeName)
	} else {
		entry, err = enumeratedGet(st, key)
	}
	if err != nil {
		return err
	}

	return printEntry(entry, asJSON)
}

// typedGet reads the key through the getter for the named kind.
func typedGet(st store.Store, key, typeName string) (store.Entry, error) {
	kind, err := store.ParseKind(typeName)
	if err != nil {
		return store.Entry{}, err
	}

	switch kind {
	case store.KindBool:
		v, err := st.GetBool(key)
		return store.BoolEntry(v), err
	case store.KindInt:
		v, err := st.GetInt(key)
		return store.IntEntry(v), err
	case store.KindFloat:
		v, err := st.GetFloat(key)
		return store.FloatEntry(v), err
	case store.KindString:
		v, err := st.GetString(key)
		return store.StringEntry(v), err
	default:
		v, err := st.GetStringSlice(key)
		return store.StringSliceEntry(v), err
	}
}

// enumeratedGet finds the key without knowing its kind up front.
func enumeratedGet(st store.Store, key string) (store.Entry, error) {
	enum, ok := st.(store.Enumerator)
	if !ok {
		return store.Entry{}, fmt.Errorf("backend cannot enumerate entries; pass --type")
	}
	entries, err := enum.Entries()
	if err != nil {
		return store.Entry{}, err
	}
	entry, ok := entries[key]
	if !ok {
		return store.Entry{}, store.ErrNotFound
	}
	return entry, nil
}

func printEntry(e store.Entry, asJSON bool) error {
	if asJSON {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	switch e.Kind {
	case store.KindStringSlice:
		for _, s := range e.Slice {
			fmt.Println(s)
		}
	default:
		fmt.Println(e.Value())
	}
	return nil
}
