package server

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/parleychat/parley/pkg/protocol"
)

// Session lifecycle states.
const (
	StateConnecting State = iota
	StateHandshaking
	StateActive
	StateClosing
	StateClosed
)

// State is a session's position in its lifecycle.
type State int32

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "invalid"
	}
}

// Session represents one connected client: its socket, its bounded outbound
// queue, and the writer goroutine that drains the queue to the socket. The
// username is assigned during the handshake and immutable once registered.
type Session struct {
	srv      *Server
	conn     net.Conn
	connType string
	queue    *Queue

	mu   sync.RWMutex // protects name during the handshake
	name string

	state         atomic.Int32
	closing       atomic.Bool
	writerStarted atomic.Bool
	writerDone    chan struct{}
}

func newSession(srv *Server, conn net.Conn, connType string) *Session {
	sess := &Session{
		srv:        srv,
		conn:       conn,
		connType:   connType,
		queue:      NewQueue(srv.config.QueueCapacity),
		writerDone: make(chan struct{}),
	}
	sess.state.Store(int32(StateConnecting))
	return sess
}

// Name returns the registered username, or "" before registration.
func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *Session) setName(name string) {
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// run drives the session: handshake, then concurrent reading and draining.
// It returns when the session is closed from any trigger.
func (s *Session) run() {
	defer s.Close()

	scanner := bufio.NewScanner(s.conn)
	scanner.Buffer(make([]byte, 0, 1024), s.srv.config.MaxLineLength)

	if !s.handshake(scanner) {
		return
	}

	s.state.Store(int32(StateActive))
	s.writerStarted.Store(true)
	go s.writeLoop()

	s.readLoop(scanner)
}

// handshake negotiates a unique username. The first line is the proposed
// name; while the name is taken (or blank) the client is prompted to pick
// another. Prompts are written directly to the socket because the writer
// goroutine only starts once the session is active. Returns false if the
// inbound stream closed before a name was accepted.
func (s *Session) handshake(scanner *bufio.Scanner) bool {
	s.state.Store(int32(StateHandshaking))

	for {
		if !scanner.Scan() {
			return false
		}
		name := scanner.Text()

		if strings.TrimSpace(name) == "" {
			if err := s.writeLine(protocol.EmptyNamePrompt); err != nil {
				return false
			}
			continue
		}

		s.setName(name)
		if s.srv.registry.Register(name, s) {
			break
		}

		s.setName("")
		if err := s.writeLine(protocol.NameTakenPrompt); err != nil {
			return false
		}
	}

	debugLog.Printf("Session %q registered (%s)", s.Name(), s.connType)

	// Register already broadcast the roster and the joined notice to
	// everyone, including this session's queue. The personal greeting
	// follows.
	s.enqueueLocal(protocol.FormatWelcome(s.Name()))
	s.enqueueLocal(protocol.FormatRoster(s.srv.registry.Names()))
	s.enqueueLocal(protocol.HelpText)
	return true
}

// readLoop reads inbound lines and dispatches them to the router until the
// stream closes, the session starts closing, or the line limit is exceeded.
func (s *Session) readLoop(scanner *bufio.Scanner) {
	for scanner.Scan() {
		if s.closing.Load() {
			return
		}
		s.srv.router.Route(s, scanner.Text())
	}

	if err := scanner.Err(); err != nil && !s.closing.Load() {
		errorLog.Printf("Session %q read error: %v", s.Name(), err)
	}
}

// writeLoop is the delivery task: the queue's single consumer. It drains
// pending lines to the socket, and after close is signalled it flushes
// whatever is already queued before exiting. A write failure is fatal to
// the session but to nothing else.
func (s *Session) writeLoop() {
	defer close(s.writerDone)

	for {
		select {
		case line := <-s.queue.Items():
			if err := s.writeLine(line); err != nil {
				if !s.closing.Load() {
					errorLog.Printf("Session %q write error: %v", s.Name(), err)
				}
				go s.Close()
				return
			}
			s.srv.metrics.RecordLineDelivered()
		case <-s.queue.Done():
			for {
				select {
				case line := <-s.queue.Items():
					if err := s.writeLine(line); err != nil {
						return
					}
					s.srv.metrics.RecordLineDelivered()
				default:
					return
				}
			}
		}
	}
}

// Send enqueues a line for delivery with the configured bounded wait. A
// receiver that cannot absorb the line within the wait is forcibly
// disconnected: the backpressure policy isolates slow consumers instead of
// letting fan-out stall or queues grow without bound.
func (s *Session) Send(line string) error {
	err := s.queue.Send(line, s.srv.config.EnqueueTimeout)
	if err == ErrQueueFull {
		errorLog.Printf("Session %q: outbound queue full for %s, disconnecting", s.Name(), s.srv.config.EnqueueTimeout)
		s.srv.metrics.RecordQueueTimeout()
		s.Close()
	}
	return err
}

// TrySend enqueues without blocking. Used by the registry while it holds
// its lock; the caller decides what a full queue means.
func (s *Session) TrySend(line string) error {
	return s.queue.TrySend(line)
}

// enqueueLocal queues a line for this session only, with the standard
// backpressure policy.
func (s *Session) enqueueLocal(line string) {
	_ = s.Send(line)
}

func (s *Session) writeLine(line string) error {
	_, err := fmt.Fprintf(s.conn, "%s\n", line)
	return err
}

// Close tears the session down. It may be called concurrently from any
// trigger (peer disconnect, /quit, queue overflow, write failure, server
// shutdown); only the first caller performs teardown, later callers return
// immediately. Teardown order: stop the queue, wait briefly for the writer
// to flush, remove from the registry, release the socket.
func (s *Session) Close() {
	if !s.closing.CompareAndSwap(false, true) {
		return
	}

	s.state.Store(int32(StateClosing))
	s.queue.Close()

	name := s.Name()

	if s.writerStarted.Load() {
		select {
		case <-s.writerDone:
		case <-time.After(s.srv.config.CloseDrainWait):
			debugLog.Printf("Session %q: writer did not drain in %s", name, s.srv.config.CloseDrainWait)
		}
	}

	if name != "" {
		s.srv.registry.Remove(name, s)
	}

	s.srv.untrackSession(s)
	s.conn.Close()
	s.state.Store(int32(StateClosed))
	s.srv.metrics.RecordSessionDisconnected()
	debugLog.Printf("Session %q closed", name)
}
