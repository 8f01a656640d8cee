package main

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/virtmix/virtmix/internal/audio"
	"github.com/virtmix/virtmix/internal/config"
	"github.com/virtmix/virtmix/internal/events"
	"github.com/virtmix/virtmix/internal/guard"
	"github.com/virtmix/virtmix/internal/mixer"
	"github.com/virtmix/virtmix/internal/pactl"
	"github.com/virtmix/virtmix/internal/server"
	"github.com/virtmix/virtmix/internal/types"
	"github.com/virtmix/virtmix/internal/util"
)

var loginTmpl = template.Must(template.New("login").Parse(loginHTML))
var indexTmpl = template.Must(template.New("index").Parse(indexHTML))
var faviconTmpl = template.Must(template.New("favicon").Parse(faviconSVG))

type loginData struct {
	Error     bool
	CSRFToken string
	Version   string
	Year      int
	PanelName string
	BrandCSS  template.CSS
}

type indexData struct {
	Version   string
	Year      int
	PanelName string
	BrandCSS  template.CSS
}

// Server is an HTTP server that provides the web interface for the mixer.
type Server struct {
	config     *config.Config
	mixer      *mixer.Manager
	capture    *audio.Scheduler
	ctl        *pactl.Client
	mixerGuard *guard.Enforcer
	micGuard   *guard.Enforcer
	sessions   *server.SessionManager
	commands   *server.CommandHandler
	version    *VersionChecker

	mu      sync.Mutex
	clients map[chan any]struct{}
}

// NewServer returns a new Server wired to the mixer components.
func NewServer(cfg *config.Config, mgr *mixer.Manager, capture *audio.Scheduler,
	ctl *pactl.Client, mixerGuard, micGuard *guard.Enforcer, eventLog *events.Logger) *Server {
	s := &Server{
		config:     cfg,
		mixer:      mgr,
		capture:    capture,
		ctl:        ctl,
		mixerGuard: mixerGuard,
		micGuard:   micGuard,
		sessions:   server.NewSessionManager(),
		commands: server.NewCommandHandler(cfg, mgr, capture, ctl,
			mixerGuard, micGuard, eventLog),
		version: NewVersionChecker(),
		clients: make(map[chan any]struct{}),
	}

	go s.runEventForwarder()
	go s.runWaveformForwarder()

	return s
}

// --- Client registry and broadcast ---

// addClient registers a connection's send channel for broadcasts.
func (s *Server) addClient(send chan any) {
	s.mu.Lock()
	s.clients[send] = struct{}{}
	s.mu.Unlock()
}

// removeClient unregisters a connection's send channel.
func (s *Server) removeClient(send chan any) {
	s.mu.Lock()
	delete(s.clients, send)
	s.mu.Unlock()
}

// broadcast hands a message to every connected client without blocking.
func (s *Server) broadcast(msg any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for send := range s.clients {
		select {
		case send <- msg:
		default:
			// Slow client; it will catch up on the next status tick.
		}
	}
}

// runEventForwarder relays mixer state transitions and monitor output
// to all connected clients.
func (s *Server) runEventForwarder() {
	for ev := range s.mixer.Updates() {
		s.broadcast(types.WSEventResponse{
			Type:    "event",
			Event:   string(ev.Event),
			Message: ev.Message,
			Error:   ev.Error,
		})
		// State transitions also deserve a fresh status frame.
		if ev.Event != events.EventMonitorOutput {
			s.broadcast(s.buildWSStatus())
		}
	}
}

// runWaveformForwarder pushes a waveform frame whenever the capture
// scheduler signals that new data arrived.
func (s *Server) runWaveformForwarder() {
	for range s.capture.Updates() {
		s.broadcast(types.WSWaveformResponse{
			Type:    "waveform",
			Samples: s.capture.Snapshot(),
		})
	}
}

// --- WebSocket plumbing ---

// handleWebSocket handles bidirectional WebSocket communication for real-time updates.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := server.Upgrade(w, r)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	// Create buffered send channel for thread-safe writes.
	// Only the writer goroutine writes to the connection, preventing race conditions.
	send := make(chan any, 32)
	done := make(chan struct{})
	statusUpdate := make(chan struct{}, 1)

	s.addClient(send)

	// Writer goroutine - sole writer to the connection
	go s.runWebSocketWriter(conn, send, done)

	// Reader goroutine - handles incoming commands
	go s.runWebSocketReader(conn, send, done, statusUpdate)

	s.runWebSocketEventLoop(send, done, statusUpdate)
}

// runWebSocketWriter writes messages from the send channel to the connection.
// It exits when done is closed. The send channel itself is never closed:
// async command goroutines may still hold a reference after the connection
// is gone, and their late responses must land in the orphaned buffer (or be
// dropped) rather than panic.
func (s *Server) runWebSocketWriter(conn server.WebSocketConn, send <-chan any, done <-chan struct{}) {
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Debug("WebSocket close error", "error", err)
		}
	}()
	for {
		select {
		case msg := <-send:
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// runWebSocketReader reads commands from the connection and dispatches them.
func (s *Server) runWebSocketReader(conn server.WebSocketConn, send chan<- any, done, statusUpdate chan<- struct{}) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in WebSocket reader", "panic", r)
		}
		close(done)
	}()

	for {
		var cmd server.WSCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		s.commands.Handle(cmd, send, func() {
			select {
			case statusUpdate <- struct{}{}:
			default:
			}
		})
	}
}

// runWebSocketEventLoop handles periodic status updates for one connection.
func (s *Server) runWebSocketEventLoop(send chan any, done, statusUpdate <-chan struct{}) {
	statusTicker := time.NewTicker(3000 * time.Millisecond)
	defer statusTicker.Stop()

	// trySend attempts to send a message, returning false if done is closed
	trySend := func(msg any) bool {
		select {
		case send <- msg:
			return true
		case <-done:
			return false
		}
	}

	// Unregister on exit but leave send open for stragglers.
	defer s.removeClient(send)

	// Send initial status
	if !trySend(s.buildWSStatus()) {
		return
	}

	for {
		select {
		case <-done:
			return
		case <-statusUpdate:
			if !trySend(s.buildWSStatus()) {
				return
			}
		case <-statusTicker.C:
			if !trySend(s.buildWSStatus()) {
				return
			}
		}
	}
}

// buildWSStatus returns the current WebSocket status response.
func (s *Server) buildWSStatus() types.WSStatusResponse {
	cfg := s.config.Snapshot()

	return types.WSStatusResponse{
		Type:       "status",
		Mixer:      s.mixer.Status(),
		Capture:    s.capture.Status(),
		MixerGuard: s.mixerGuard.Status(),
		MicGuard:   s.micGuard.Status(),
		Sources:    s.ctl.ListSources(),
		VolumeStep: cfg.VolumeStep,
		Version:    s.version.Info(),
	}
}

// --- Routes ---

// SetupRoutes returns an [http.Handler] configured with all application routes.
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()
	auth := s.sessions.AuthMiddleware()

	// Public routes (no auth required)
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/logout", s.handleLogout)

	// Public static assets (needed for login page styling)
	mux.HandleFunc("/style.css", s.handlePublicStatic)
	mux.HandleFunc("/favicon.svg", s.handleFavicon)

	// Protected routes
	mux.HandleFunc("/ws", auth(s.handleWebSocket))
	mux.HandleFunc("/", auth(s.handleStatic))

	return securityHeaders(mux)
}

// securityHeaders returns middleware that wraps handlers with security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// handlePublicStatic handles requests for static files without authentication.
func (s *Server) handlePublicStatic(w http.ResponseWriter, r *http.Request) {
	if !serveStaticFile(w, r.URL.Path) {
		http.NotFound(w, r)
	}
}

// handleFavicon serves the favicon with the configured panel color.
func (s *Server) handleFavicon(w http.ResponseWriter, r *http.Request) {
	cfg := s.config.Snapshot()
	w.Header().Set("Content-Type", "image/svg+xml")
	if err := faviconTmpl.Execute(w, struct{ Color string }{Color: cfg.PanelColorLight}); err != nil {
		slog.Error("failed to render favicon", "error", err)
	}
}

// serveStaticFile serves a static file by path and reports whether it was found.
func serveStaticFile(w http.ResponseWriter, path string) bool {
	file, ok := staticFiles[path]
	if !ok {
		return false
	}
	w.Header().Set("Content-Type", file.contentType)
	if _, err := w.Write([]byte(file.content)); err != nil {
		slog.Error("failed to write static file", "file", file.name, "error", err)
	}
	return true
}

// handleLogin handles login page display and form submission.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie("virtmix_session"); err == nil {
		if s.sessions.Validate(cookie.Value) {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
	}

	cfg := s.config.Snapshot()
	data := loginData{
		Version:   Version,
		Year:      time.Now().Year(),
		CSRFToken: s.sessions.CreateCSRFToken(),
		PanelName: cfg.PanelName,
		BrandCSS:  template.CSS(util.GenerateBrandCSS(cfg.PanelColorLight, cfg.PanelColorDark)),
	}

	if r.Method == http.MethodPost {
		csrfToken := r.FormValue("csrf_token")
		if !s.sessions.ValidateCSRFToken(csrfToken) {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		username := r.FormValue("username")
		password := r.FormValue("password")

		if s.sessions.Login(w, r, username, password, cfg.WebUser, cfg.WebPassword) {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		data.Error = true
		data.CSRFToken = s.sessions.CreateCSRFToken() // New token for retry
	}

	w.Header().Set("Content-Type", "text/html")
	if err := loginTmpl.Execute(w, data); err != nil {
		slog.Error("failed to render login page", "error", err)
	}
}

// handleLogout handles user logout requests.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Logout(w, r)
	http.Redirect(w, r, "/login", http.StatusFound)
}

// staticFile is an embedded static file with content type and data.
type staticFile struct {
	contentType string
	content     string
	name        string
}

// staticFiles is a map from URL paths to static file definitions.
var staticFiles = map[string]staticFile{
	"/style.css": {
		contentType: "text/css",
		content:     styleCSS,
		name:        "style.css",
	},
	"/app.js": {
		contentType: "application/javascript",
		content:     appJS,
		name:        "app.js",
	},
	// favicon.svg is served dynamically via handleFavicon
}

// handleStatic handles requests for embedded static web interface files.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/" {
		path = "/index.html"
	}

	// Serve index.html with dynamic placeholders.
	if path == "/index.html" {
		cfg := s.config.Snapshot()
		w.Header().Set("Content-Type", "text/html")
		if err := indexTmpl.Execute(w, indexData{
			Version:   Version,
			Year:      time.Now().Year(),
			PanelName: cfg.PanelName,
			BrandCSS:  template.CSS(util.GenerateBrandCSS(cfg.PanelColorLight, cfg.PanelColorDark)),
		}); err != nil {
			slog.Error("failed to write index.html", "error", err)
		}
		return
	}

	if serveStaticFile(w, path) {
		return
	}

	http.NotFound(w, r)
}

// Start begins the HTTP server.
// Returns an *http.Server that can be used for graceful shutdown.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.config.Snapshot().WebPort)
	slog.Info("starting web server", "addr", addr)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.SetupRoutes(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	return srv
}
