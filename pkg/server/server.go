package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keywatch-dev/keywatch/pkg/keywatch"
	"github.com/keywatch-dev/keywatch/pkg/store"
)

// Server exposes a session's store and change feed over HTTP.
//
// Routes:
//   - GET    /api/keys        sorted key list
//   - GET    /api/keys/{key}  raw entry JSON, 404 when absent
//   - PUT    /api/keys/{key}  typed write (entry JSON body), publishes
//   - DELETE /api/keys/{key}  remove, publishes
//   - DELETE /api/keys        clear, publishes every removed key
//   - GET    /api/watch       WebSocket change feed, ?key= filters
//   - GET    /healthz         liveness probe
//   - GET    /metrics         Prometheus (when enabled)
type Server struct {
	session *keywatch.Session

	// entries lists raw store entries; nil when the store cannot.
	entries store.Enumerator

	config *Config

	router chi.Router

	// WebSocket upgrader
	upgrader websocket.Upgrader

	// Active watch clients
	clientMu sync.Mutex
	clients  map[*watchClient]struct{}

	httpServer *http.Server

	logger *slog.Logger
}

// New creates a new Server for the given session.
// A nil config uses DefaultConfig; unset fields are filled from it.
func New(sess *keywatch.Session, config *Config) *Server {
	if sess == nil {
		panic("server: nil session")
	}
	if config == nil {
		config = DefaultConfig()
	} else {
		// Fill in defaults for any unset fields
		defaults := DefaultConfig()
		if config.Addr == "" {
			config.Addr = defaults.Addr
		}
		if config.ReadTimeout == 0 {
			config.ReadTimeout = defaults.ReadTimeout
		}
		if config.WriteTimeout == 0 {
			config.WriteTimeout = defaults.WriteTimeout
		}
		if config.PingInterval == 0 {
			config.PingInterval = defaults.PingInterval
		}
		if config.ShutdownTimeout == 0 {
			config.ShutdownTimeout = defaults.ShutdownTimeout
		}
		if config.MaxPending == 0 {
			config.MaxPending = defaults.MaxPending
		}
		if config.CheckOrigin == nil {
			config.CheckOrigin = defaults.CheckOrigin
		}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "server")

	entries, _ := sess.Store().(store.Enumerator)

	s := &Server{
		session: sess,
		entries: entries,
		config:  config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     config.CheckOrigin,
		},
		clients: make(map[*watchClient]struct{}),
		logger:  logger,
	}
	s.router = s.routes()
	return s
}

// routes builds the chi router.
func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/keys", s.handleListKeys)
		r.Delete("/keys", s.handleClear)
		r.Get("/keys/{key}", s.handleGetKey)
		r.Put("/keys/{key}", s.handlePutKey)
		r.Delete("/keys/{key}", s.handleDeleteKey)
		r.Get("/watch", s.handleWatch)
	})

	r.Get("/healthz", s.handleHealth)

	if s.config.EnableMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns an http.Handler for mounting in external routers.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Use(authMiddleware)
//	r.Mount("/", srv.Handler())
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the server and blocks until the context is
// canceled or the listener fails. Cancellation triggers a graceful
// shutdown bounded by ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.config.Addr,
		Handler:      s,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("server starting", "address", s.config.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server: watch clients are closed
// first, then the HTTP server drains within ShutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.closeClients()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// addClient registers an active watch client.
func (s *Server) addClient(c *watchClient) {
	s.clientMu.Lock()
	s.clients[c] = struct{}{}
	s.clientMu.Unlock()
}

// removeClient drops a watch client from the active set.
func (s *Server) removeClient(c *watchClient) {
	s.clientMu.Lock()
	delete(s.clients, c)
	s.clientMu.Unlock()
}

// closeClients closes every active watch client.
func (s *Server) closeClients() {
	s.clientMu.Lock()
	clients := make([]*watchClient, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.clientMu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// Session returns the session the server exposes.
func (s *Server) Session() *keywatch.Session {
	return s.session
}

// Config returns the server configuration.
func (s *Server) Config() *Config {
	return s.config
}

// Logger returns the server logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}
