package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/keywatch-dev/keywatch/pkg/keywatch"
)

// ChangeFrame is one message of the watch feed.
type ChangeFrame struct {
	Key string `json:"key"`
}

// watchClient is a single WebSocket subscriber of the change feed.
type watchClient struct {
	server *Server
	conn   *websocket.Conn
	remote string

	// filter holds the watched keys; nil means every key.
	filter map[string]struct{}

	send chan ChangeFrame

	mu     sync.Mutex
	sub    *keywatch.BusSubscription
	closed bool

	closeOnce sync.Once
}

// handleWatch upgrades the request and streams change frames until the
// client disconnects, falls too far behind, or the session closes.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	var filter map[string]struct{}
	if keys := r.URL.Query()["key"]; len(keys) > 0 {
		filter = make(map[string]struct{}, len(keys))
		for _, k := range keys {
			filter[k] = struct{}{}
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &watchClient{
		server: s,
		conn:   conn,
		remote: conn.RemoteAddr().String(),
		filter: filter,
		send:   make(chan ChangeFrame, s.config.MaxPending),
	}
	s.addClient(c)
	c.attach(s.session.Bus().Subscribe(c.deliver))

	s.logger.Debug("watch client connected", "remote", c.remote, "filtered", len(filter))

	go c.writeLoop()
	go c.readLoop()
}

// attach records the bus subscription. The client may already have been
// dropped by a deliver that overflowed the buffer mid-subscribe; cancel
// right away in that case.
func (c *watchClient) attach(sub *keywatch.BusSubscription) {
	c.mu.Lock()
	c.sub = sub
	closed := c.closed
	c.mu.Unlock()

	if closed {
		sub.Cancel()
	}
}

// deliver runs on the publisher's goroutine and must never block: a full
// buffer means the client is too slow, and it is dropped.
func (c *watchClient) deliver(key string) {
	if c.filter != nil {
		if _, ok := c.filter[key]; !ok {
			return
		}
	}

	select {
	case c.send <- ChangeFrame{Key: key}:
	default:
		c.server.logger.Warn("watch client too slow, dropping", "remote", c.remote)
		c.close()
	}
}

// writeLoop sends change frames and heartbeat pings until the client is
// done or the session completes the subscription.
func (c *watchClient) writeLoop() {
	ticker := time.NewTicker(c.server.config.PingInterval)
	defer ticker.Stop()
	defer c.close()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.server.config.WriteTimeout))
			if err := c.conn.WriteJSON(frame); err != nil {
				c.server.logger.Debug("watch write failed", "remote", c.remote, "error", err)
				return
			}

		case <-ticker.C:
			deadline := time.Now().Add(c.server.config.WriteTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}

		case <-c.sub.Done():
			// Session closed: the feed is over.
			c.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			return
		}
	}
}

// readLoop consumes inbound traffic to process pongs and detect
// disconnects. The feed is one-way; data messages are ignored.
func (c *watchClient) readLoop() {
	defer c.close()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(c.server.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.server.config.ReadTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.server.logger.Debug("watch read error", "remote", c.remote, "error", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(c.server.config.ReadTimeout))
	}
}

// close tears the client down exactly once: the bus subscription is
// canceled, the connection closed, and the client deregistered.
func (c *watchClient) close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		sub := c.sub
		c.mu.Unlock()

		if sub != nil {
			sub.Cancel()
		}
		c.conn.Close()
		c.server.removeClient(c)
	})
}
