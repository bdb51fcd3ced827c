package server

import (
	"bytes"
	"io"
	"net"
	"sync"
	"testing"
	"time"
)

func init() {
	// Keep test output quiet
	errorLog.SetOutput(io.Discard)
	debugLog.SetOutput(io.Discard)
}

// testConfig returns a configuration suitable for unit tests: random TCP
// port, no HTTP/SSH transports, short timeouts.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.TCPPort = 0
	cfg.HTTPPort = -1
	cfg.SSHPort = -1
	cfg.EnqueueTimeout = 100 * time.Millisecond
	cfg.CloseDrainWait = 50 * time.Millisecond
	cfg.ShutdownTimeout = 2 * time.Second
	return cfg
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()

	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return srv
}

// newMemberSession creates a registered session backed by a mock conn whose
// writer is not running, so enqueued lines stay observable in the queue.
func newMemberSession(t *testing.T, srv *Server, name string) *Session {
	t.Helper()

	sess := newSession(srv, newMockConn(), "tcp")
	sess.setName(name)
	if !srv.registry.Register(name, sess) {
		t.Fatalf("Failed to register session %q", name)
	}
	return sess
}

// queuedLines drains and returns everything currently in a session's
// outbound queue.
func queuedLines(sess *Session) []string {
	var lines []string
	for {
		select {
		case line := <-sess.queue.Items():
			lines = append(lines, line)
		default:
			return lines
		}
	}
}

// waitFor polls cond until it holds or a two second deadline expires.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

// mockConn implements net.Conn for testing
type mockConn struct {
	mu       sync.Mutex
	readBuf  bytes.Buffer
	writeBuf bytes.Buffer
	closed   bool
}

func newMockConn() *mockConn {
	return &mockConn{}
}

func (m *mockConn) Read(b []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readBuf.Len() == 0 {
		return 0, io.EOF
	}
	return m.readBuf.Read(b)
}

func (m *mockConn) Write(b []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, net.ErrClosed
	}
	return m.writeBuf.Write(b)
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockConn) Written() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeBuf.String()
}

func (m *mockConn) LocalAddr() net.Addr                { return &net.TCPAddr{} }
func (m *mockConn) RemoteAddr() net.Addr               { return &net.TCPAddr{} }
func (m *mockConn) SetDeadline(t time.Time) error      { return nil }
func (m *mockConn) SetReadDeadline(t time.Time) error  { return nil }
func (m *mockConn) SetWriteDeadline(t time.Time) error { return nil }
