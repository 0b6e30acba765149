package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╦╔═┌─┐┬ ┬╦ ╦┌─┐┌┬┐┌─┐┬ ┬
  ╠╩╗├┤ └┬┘║║║├─┤ │ │  ├─┤
  ╩ ╩└─┘ ┴ ╚╩╝┴ ┴ ┴ └─┘┴ ┴
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "keywatch",
		Short: "Typed key-value store with change notification",
		Long: `KeyWatch is a reactive layer over a typed key-value store.

Inspect and edit stores from the command line, or run the server to
expose a store over HTTP with a live change feed. Features include:

  • Typed entries: bool, int, float, string, strings
  • Pluggable backends: memory, badger, s3
  • REST API plus a WebSocket change feed
  • Prometheus metrics for store traffic`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add commands
	rootCmd.AddCommand(
		getCmd(),
		setCmd(),
		delCmd(),
		keysCmd(),
		clearCmd(),
		watchCmd(),
		serveCmd(),
		versionCmd(),
	)

	// Execute
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

// printBanner prints the KeyWatch ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}
