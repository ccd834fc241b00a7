package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/custodia-labs/linkdeck/internal/core/domain"
	"github.com/custodia-labs/linkdeck/internal/core/ports/driven"
	"github.com/custodia-labs/linkdeck/internal/logger"
)

// Ensure Server implements the interfaces.
var (
	_ driven.MessageBus = (*Server)(nil)
	_ driven.Location   = (*Server)(nil)
)

const (
	// PortRangeStart and PortRangeEnd bound the fallback scan when the configured port is taken.
	PortRangeStart = 8765
	PortRangeEnd   = 8865

	// maxMessageSize caps a single relayed message.
	maxMessageSize = 64 << 10

	// defaultLocationHold is how long a redirected address stays visible before
	// the landing page is considered clean again.
	defaultLocationHold = 3 * time.Second
)

// Server is the loopback relay.
type Server struct {
	mu       sync.Mutex
	port     int
	server   *http.Server
	listener net.Listener
	router   chi.Router
	upgrader websocket.Upgrader

	bus          *Bus
	href         atomic.Pointer[string]
	redirects    atomic.Uint64
	locationHold time.Duration
	resetTimer   *time.Timer

	tabsMu sync.Mutex
	tabs   map[string]*tab
}

// NewServer creates a relay that will listen on port.
// Port 0 picks a random free port.
func NewServer(port int) *Server {
	s := &Server{
		port:         port,
		bus:          NewBus(),
		locationHold: defaultLocationHold,
		tabs:         make(map[string]*tab),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Every origin may connect; the messenger filters by origin per message.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	empty := ""
	s.href.Store(&empty)
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/", s.handleLanding)
	r.Get("/healthz", s.handleHealth)
	r.Get("/ws", s.handleSocket)
	r.With(allowOrigin).Post("/message", s.handleMessage)
	r.With(allowOrigin).Options("/message", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

// Handler returns the relay's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured port and serves in the background.
// A taken non-zero port falls back to the first free port in the relay range.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}

	listener, err := listen(s.port)
	if err != nil && s.port != 0 {
		logger.Warn("relay port %d unavailable, scanning %d-%d", s.port, PortRangeStart, PortRangeEnd)
		var port int
		port, err = FindAvailablePort(PortRangeStart, PortRangeEnd)
		if err == nil {
			listener, err = listen(port)
		}
	}
	if err != nil {
		return err
	}
	s.listener = listener
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		s.port = tcpAddr.Port
	}
	base := s.baseURL()
	s.href.Store(&base)

	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("relay stopped: %v", err)
		}
	}()

	logger.Debug("relay listening on %s", base)
	return nil
}

func listen(port int) (net.Listener, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return listener, nil
}

// Stop closes every tab socket and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.tabsMu.Lock()
	tabs := make([]*tab, 0, len(s.tabs))
	for _, t := range s.tabs {
		tabs = append(tabs, t)
	}
	s.tabsMu.Unlock()
	for _, t := range tabs {
		_ = t.Close()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resetTimer != nil {
		s.resetTimer.Stop()
	}
	if s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	s.server = nil
	s.listener = nil
	return err
}

// Port returns the port the server is listening on.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// URL returns the landing page address, used as the authorization return URL.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseURL()
}

func (s *Server) baseURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d/", s.port)
}

// Href returns the landing page's current address.
func (s *Server) Href() string {
	return *s.href.Load()
}

// Redirects returns how many authorization returns have hit the landing page.
func (s *Server) Redirects() uint64 {
	return s.redirects.Load()
}

// Subscribe registers a handler for relayed messages.
func (s *Server) Subscribe(predicate driven.MessagePredicate, handler driven.MessageHandler) func() {
	return s.bus.Subscribe(predicate, handler)
}

// Track returns a fresh handle for the tab about to open under windowName.
// Sockets for that window attach to the newest handle.
func (s *Server) Track(windowName string) driven.Tab {
	t := newTab(windowName)
	s.tabsMu.Lock()
	s.tabs[windowName] = t
	s.tabsMu.Unlock()
	return t
}

func (s *Server) tabFor(windowName string) *tab {
	s.tabsMu.Lock()
	defer s.tabsMu.Unlock()
	t, ok := s.tabs[windowName]
	if !ok {
		t = newTab(windowName)
		s.tabs[windowName] = t
	}
	return t
}

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	ret, isReturn := domain.ParseOAuthReturn(r.URL.String())
	if isReturn {
		s.markRedirected(r)
		logger.Warn("landing page received an authorization return: success=%t provider=%s error=%q",
			ret.Success, ret.Provider, ret.Error)
	}

	title, message := landingText(ret, isReturn)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprint(w, landingHTML(title, message))
}

// markRedirected exposes the redirected address, then restores the clean one.
func (s *Server) markRedirected(r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	href := fmt.Sprintf("http://127.0.0.1:%d%s", s.port, r.URL.RequestURI())
	s.href.Store(&href)
	s.redirects.Add(1)

	if s.resetTimer != nil {
		s.resetTimer.Stop()
	}
	base := s.baseURL()
	s.resetTimer = time.AfterFunc(s.locationHold, func() {
		s.href.CompareAndSwap(&href, &base)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":        "ok",
		"subscriptions": s.bus.Len(),
	})
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	window := r.URL.Query().Get("window")
	origin := r.Header.Get("Origin")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("relay websocket upgrade failed: %v", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	var t *tab
	if window != "" {
		t = s.tabFor(window)
		t.attach(conn)
	}
	logger.Debug("relay socket opened window=%q origin=%q", window, origin)

	defer func() {
		if t != nil {
			t.detach(conn)
		}
		_ = conn.Close()
		logger.Debug("relay socket closed window=%q", window)
	}()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		s.bus.Publish(domain.WindowMessage{
			Window:     window,
			Origin:     origin,
			Data:       data,
			ReceivedAt: time.Now(),
		})
	}
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxMessageSize+1))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	if len(data) > maxMessageSize {
		http.Error(w, "message too large", http.StatusRequestEntityTooLarge)
		return
	}

	s.bus.Publish(domain.WindowMessage{
		Window:     r.URL.Query().Get("window"),
		Origin:     r.Header.Get("Origin"),
		Data:       data,
		ReceivedAt: time.Now(),
	})
	w.WriteHeader(http.StatusNoContent)
}

// allowOrigin lets completion pages on the backend origin post across origins.
func allowOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Add("Vary", "Origin")
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger writes one debug line per request through the app logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Debug("relay %s %s -> %d (%s)", r.Method, r.URL.Path, ww.Status(), time.Since(start).Round(time.Millisecond))
	})
}

// FindAvailablePort finds an available port in the given range.
func FindAvailablePort(startPort, endPort int) (int, error) {
	for port := startPort; port <= endPort; port++ {
		addr := fmt.Sprintf("127.0.0.1:%d", port)
		listener, err := net.Listen("tcp", addr)
		if err == nil {
			listener.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available port in range %d-%d", startPort, endPort)
}
