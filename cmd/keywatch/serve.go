package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/keywatch-dev/keywatch/pkg/keywatch"
	"github.com/keywatch-dev/keywatch/pkg/middleware"
	"github.com/keywatch-dev/keywatch/pkg/server"
)

func serveCmd() *cobra.Command {
	var (
		flags   backendFlags
		addr    string
		metrics bool
		guard   bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a store over HTTP with a live change feed",
		Long: `Serve a store over HTTP.

The server exposes the REST API under /api, a WebSocket change feed at
/api/watch, and optionally Prometheus metrics at /metrics. Writes made
through the API notify every connected watcher.

Examples:
  keywatch serve
  keywatch serve --backend badger --path /var/lib/keywatch
  keywatch serve --addr :9000 --metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(flags, addr, metrics, guard, verbose)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&addr, "addr", "a", ":8844", "Listen address")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "Expose Prometheus metrics at /metrics")
	cmd.Flags().BoolVar(&guard, "guard", false, "Enable the rapid-resubscription guard")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	return cmd
}

func runServe(flags backendFlags, addr string, metrics, guard, verbose bool) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Handle signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, closer, err := flags.open(ctx)
	if err != nil {
		return err
	}
	defer closer.Close()

	if metrics {
		st = middleware.InstrumentStore(st)
	}

	sess := keywatch.NewSession(st,
		keywatch.WithLogger(logger),
		keywatch.WithRateGuard(guard),
	)
	defer sess.Close()

	if metrics {
		prometheus.MustRegister(middleware.SessionCollectors(sess)...)
	}

	config := server.DefaultConfig().
		WithAddr(addr).
		WithMetrics(metrics).
		WithLogger(logger)
	srv := server.New(sess, config)

	printBanner()
	fmt.Println("  serve")
	fmt.Println()
	info("backend:   %s", flags.backend)
	info("listening: %s", addr)
	if metrics {
		info("metrics:   /metrics")
	}
	fmt.Println()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\n\n  Shutting down...")
		cancel()
	}()

	return srv.ListenAndServe(ctx)
}
