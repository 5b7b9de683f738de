package preview

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes an Instance over HTTP and websockets.
type Server struct {
	inst     *Instance
	mu       sync.Mutex // serializes access to inst
	title    string
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	upgrader websocket.Upgrader

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]*client
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
	// mode is the frame type of the client's last message.
	mode int
}

func (c *client) write(r Reply) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := EncodeReply(c.mode, r)
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(c.mode, data)
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the server's logger.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTitle sets the page title of the shell.
func WithTitle(title string) ServerOption {
	return func(s *Server) { s.title = title }
}

// WithGatherer serves metrics from g on /metrics.
func WithGatherer(g prometheus.Gatherer) ServerOption {
	return func(s *Server) { s.gatherer = g }
}

// NewServer creates a server for inst.
func NewServer(inst *Instance, opts ...ServerOption) *Server {
	s := &Server{
		inst:     inst,
		title:    "refx preview",
		logger:   slog.Default().With("component", "preview"),
		gatherer: prometheus.DefaultGatherer,
		clients:  make(map[*websocket.Conn]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // local preview tool
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	inst.OnEvent(func(rec EventRecord) {
		s.logger.Info("handler invoked", "handler", rec.Handler, "type", rec.Type, "target", rec.Target)
	})
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/", s.handleShell)
	r.Get("/dom", s.handleDOM)
	r.Get("/events", s.handleEvents)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/ws", s.handleWebSocket)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

func (s *Server) handleShell(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := Shell(s.title, s.markup(), "/ws").Render(r.Context(), w); err != nil {
		s.logger.Warn("render shell", "error", err)
	}
}

func (s *Server) handleDOM(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(s.markup()))
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	events := s.inst.Events()
	if events == nil {
		events = []EventRecord{}
	}
	json.NewEncoder(w).Encode(events)
}

func (s *Server) markup() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inst.HTML()
}

// Apply applies one client message and returns the reply for it.
func (s *Server) Apply(m Message) Reply {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.inst.Events())
	var reply Reply
	var errs []error
	if m.Source != "" {
		if err := s.inst.Set(m.Source, m.Value); err != nil {
			errs = append(errs, err)
		}
	}
	if m.Event != "" {
		handled, err := s.inst.Dispatch(m.Event, m.Path)
		if err != nil {
			errs = append(errs, err)
		}
		reply.Handled = handled
	}
	if err := errors.Join(errs...); err != nil {
		reply.Error = err.Error()
	}
	if events := s.inst.Events(); len(events) > before {
		reply.Events = events[before:]
	}
	reply.HTML = s.inst.HTML()
	return reply
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn, mode: websocket.TextMessage}

	s.clientsMu.Lock()
	s.clients[conn] = c
	s.clientsMu.Unlock()
	defer s.drop(conn)

	if err := c.write(Reply{HTML: s.markup()}); err != nil {
		return
	}

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		c.mu.Lock()
		c.mode = mt
		c.mu.Unlock()

		m, err := DecodeMessage(mt, data)
		if err != nil {
			c.write(Reply{HTML: s.markup(), Error: err.Error()})
			continue
		}
		reply := s.Apply(m)
		if err := c.write(reply); err != nil {
			return
		}
		s.broadcast(conn, Reply{HTML: reply.HTML, Events: reply.Events})
	}
}

// broadcast sends r to every client except skip.
func (s *Server) broadcast(skip *websocket.Conn, r Reply) {
	s.clientsMu.RLock()
	clients := make([]*client, 0, len(s.clients))
	for conn, c := range s.clients {
		if conn != skip {
			clients = append(clients, c)
		}
	}
	s.clientsMu.RUnlock()

	for _, c := range clients {
		if err := c.write(r); err != nil {
			s.drop(c.conn)
		}
	}
}

func (s *Server) drop(conn *websocket.Conn) {
	s.clientsMu.Lock()
	delete(s.clients, conn)
	s.clientsMu.Unlock()
	conn.Close()
}

// ClientCount returns the number of connected websocket clients.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("preview listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// Close disconnects every websocket client.
func (s *Server) Close() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for conn := range s.clients {
		conn.Close()
		delete(s.clients, conn)
	}
}
