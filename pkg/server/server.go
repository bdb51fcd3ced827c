package server

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/parleychat/parley/pkg/store"
)

// Server accepts connections on one or more transports (TCP, WebSocket,
// SSH) and routes newline-delimited text among the resulting sessions.
type Server struct {
	config   Config
	filter   *Filter
	metrics  *Metrics
	registry *Registry
	router   *Router
	store    *store.Store

	listener     net.Listener
	sshListener  net.Listener
	httpListener net.Listener
	httpServer   *http.Server

	// conns tracks every live session, registered or still handshaking,
	// so shutdown can reach the ones that never finished a handshake.
	connsMu sync.Mutex
	conns   map[*Session]struct{}

	shutdown  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	startTime time.Time
}

// NewServer creates a server from the resolved configuration. Banned
// phrases come from the config; when a database path is configured, the
// phrases persisted there are merged in. Any failure here is fatal: no
// partial server state is left behind.
func NewServer(config Config) (*Server, error) {
	phrases := append([]string(nil), config.BannedPhrases...)

	var st *store.Store
	if config.DatabasePath != "" {
		var err error
		st, err = store.Open(config.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open phrase store: %w", err)
		}

		stored, err := st.BannedPhrases()
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to load banned phrases: %w", err)
		}
		phrases = append(phrases, stored...)
	}

	filter, err := NewFilter(phrases)
	if err != nil {
		if st != nil {
			st.Close()
		}
		return nil, err
	}

	metrics := NewMetrics()
	registry := NewRegistry(metrics)

	return &Server{
		config:   config,
		filter:   filter,
		metrics:  metrics,
		registry: registry,
		router:   NewRouter(registry, filter, metrics),
		store:    st,
		conns:    make(map[*Session]struct{}),
		shutdown: make(chan struct{}),
	}, nil
}

// Registry exposes the live-membership registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Filter exposes the banned-phrase filter.
func (s *Server) Filter() *Filter {
	return s.filter
}

// Addr returns the TCP listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// HTTPAddr returns the HTTP listen address, or nil when disabled.
func (s *Server) HTTPAddr() net.Addr {
	if s.httpListener == nil {
		return nil
	}
	return s.httpListener.Addr()
}

// SSHAddr returns the SSH listen address, or nil when disabled.
func (s *Server) SSHAddr() net.Addr {
	if s.sshListener == nil {
		return nil
	}
	return s.sshListener.Addr()
}

// Start binds every configured transport and begins accepting connections.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.TCPPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	s.startTime = time.Now()
	s.metrics.RecordStartTime(s.startTime)
	errorLog.Printf("%s listening on %s", s.config.ServerName, listener.Addr())

	if err := s.startHTTPServer(); err != nil {
		s.listener.Close()
		return err
	}

	if err := s.startSSHServer(); err != nil {
		if s.httpServer != nil {
			s.httpServer.Close()
		}
		s.listener.Close()
		return err
	}

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop gracefully stops the server: unblock the acceptors, close every
// session, then wait out the worker pools with a bounded timeout before
// giving up on stragglers.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		close(s.shutdown)

		if s.listener != nil {
			s.listener.Close()
		}
		if s.sshListener != nil {
			s.sshListener.Close()
		}
		if s.httpServer != nil {
			s.httpServer.Close()
		}

		s.registry.CloseAll()
		s.closeAllConns()

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(s.config.ShutdownTimeout):
			errorLog.Printf("Shutdown timed out after %s, abandoning remaining workers", s.config.ShutdownTimeout)
		}

		if s.store != nil {
			s.store.Close()
		}
	})
	return nil
}

// acceptLoop accepts incoming TCP connections. It never blocks on
// per-client work: each accepted socket is handed to its own goroutine.
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
				errorLog.Printf("Accept error: %v", err)
				continue
			}
		}

		go s.handleConnection(conn, "tcp")
	}
}

// handleConnection runs a single client connection to completion.
func (s *Server) handleConnection(conn net.Conn, connType string) {
	// Disable Nagle's algorithm for immediate sends
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetNoDelay(true)
	}

	s.metrics.RecordSessionCreated()
	sess := newSession(s, conn, connType)
	s.trackSession(sess)

	debugLog.Printf("New %s connection from %s", connType, conn.RemoteAddr())
	sess.run()
}

// startHTTPServer serves the WebSocket transport and the metrics endpoint.
func (s *Server) startHTTPServer() error {
	if s.config.HTTPPort < 0 {
		errorLog.Printf("HTTP server disabled (http_port=%d)", s.config.HTTPPort)
		return nil
	}

	addr := fmt.Sprintf(":%d", s.config.HTTPPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.httpListener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWebSocket)
	mux.Handle("/metrics", s.metrics.Handler())

	s.httpServer = &http.Server{Handler: mux}
	errorLog.Printf("HTTP server listening on %s (WebSocket at /ws, metrics at /metrics)", listener.Addr())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			select {
			case <-s.shutdown:
			default:
				errorLog.Printf("HTTP server error: %v", err)
			}
		}
	}()

	return nil
}

func (s *Server) trackSession(sess *Session) {
	s.connsMu.Lock()
	s.conns[sess] = struct{}{}
	s.connsMu.Unlock()
}

func (s *Server) untrackSession(sess *Session) {
	s.connsMu.Lock()
	delete(s.conns, sess)
	s.connsMu.Unlock()
}

// closeAllConns closes sessions that never made it into the registry.
func (s *Server) closeAllConns() {
	s.connsMu.Lock()
	remaining := make([]*Session, 0, len(s.conns))
	for sess := range s.conns {
		remaining = append(remaining, sess)
	}
	s.connsMu.Unlock()

	for _, sess := range remaining {
		sess.Close()
	}
}
