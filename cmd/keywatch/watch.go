package main

import (
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/keywatch-dev/keywatch/pkg/server"
)

func watchCmd() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "watch [keys...]",
		Short: "Stream change notifications from a running server",
		Long: `Connect to a running keywatch server and print every change as
it happens. With key arguments, only changes to those keys are shown.

Examples:
  keywatch watch
  keywatch watch ui.dark volume
  keywatch watch --server http://prefs.internal:8844`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(serverURL, args)
		},
	}

	cmd.Flags().StringVarP(&serverURL, "server", "s", "http://127.0.0.1:8844", "Server base URL")

	return cmd
}

func runWatch(serverURL string, keys []string) error {
	u, err := url.Parse(serverURL)
	if err != nil {
		return fmt.Errorf("parse server URL: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = "/api/watch"
	q := url.Values{}
	for _, k := range keys {
		q.Add("key", k)
	}
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", u.Host, err)
	}
	defer conn.Close()

	info("watching %s (ctrl-c to stop)", u.Host)

	// Interrupt sends a close frame so the server sees a clean exit.
	var closing atomic.Bool
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			closing.Store(true)
			conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			conn.Close()
		case <-done:
		}
	}()
	defer close(done)

	for {
		var frame server.ChangeFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if closing.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			errorMsg("feed closed: %v", err)
			return err
		}
		fmt.Printf("%s  %s\n", time.Now().Format(time.TimeOnly), frame.Key)
	}
}
