package server

import (
	"sort"
	"sync"

	"github.com/parleychat/parley/pkg/protocol"
)

// Registry is the authoritative live-membership map: username → session.
// Every mutation and its roster/notice broadcast happen under one mutex, so
// two clients can never claim the same name and every broadcast roster
// reflects the registry exactly as it stood when the mutation completed.
//
// The lock is never held across a blocking send: broadcasts issued under
// the lock use TrySend, and a session whose queue is already full at that
// point is terminated asynchronously.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	metrics  *Metrics
}

// NewRegistry creates an empty registry.
func NewRegistry(metrics *Metrics) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		metrics:  metrics,
	}
}

// Register atomically binds name to sess. If the name is free it is bound
// and, still within the same atomic step, the updated roster and a joined
// notice are broadcast to every member including the new one. Returns false
// without mutating anything if the name is taken.
func (r *Registry) Register(name string, sess *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.sessions[name]; taken {
		return false
	}
	r.sessions[name] = sess

	r.metrics.RecordActiveSessions(len(r.sessions))
	r.broadcastLocked(protocol.FormatRoster(r.namesLocked()))
	r.broadcastLocked(protocol.FormatSystem(name + " joined"))
	return true
}

// Remove atomically unbinds name, provided it is still bound to sess, and
// broadcasts the updated roster and a left notice. The identity check means a
// session whose registration lost a name race cannot unbind the live owner
// when it closes; it also keeps cleanup from multiple failure paths
// idempotent.
func (r *Registry) Remove(name string, sess *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sessions[name] != sess {
		return false
	}
	delete(r.sessions, name)

	r.metrics.RecordActiveSessions(len(r.sessions))
	r.broadcastLocked(protocol.FormatRoster(r.namesLocked()))
	r.broadcastLocked(protocol.FormatSystem(name + " left"))
	return true
}

// Snapshot returns an independent copy of the membership map so fan-out can
// iterate without holding the registry lock.
func (r *Registry) Snapshot() map[string]*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make(map[string]*Session, len(r.sessions))
	for name, sess := range r.sessions {
		snapshot[name] = sess
	}
	return snapshot
}

// Names returns the currently registered usernames, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.namesLocked()
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll closes every registered session in parallel and waits for the
// teardowns to finish. Used during server shutdown.
func (r *Registry) CloseAll() {
	snapshot := r.Snapshot()

	var wg sync.WaitGroup
	for _, sess := range snapshot {
		wg.Add(1)
		go func(sess *Session) {
			defer wg.Done()
			sess.Close()
		}(sess)
	}
	wg.Wait()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.sessions))
	for name := range r.sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// broadcastLocked enqueues line to every registered session without
// blocking. A session that cannot even absorb a roster line is already a
// full queue behind and gets terminated off the lock.
func (r *Registry) broadcastLocked(line string) {
	for name, sess := range r.sessions {
		switch err := sess.TrySend(line); err {
		case ErrQueueFull:
			errorLog.Printf("Session %q: queue full during registry broadcast, disconnecting", name)
			go sess.Close()
		case ErrQueueClosed:
			// Session is tearing down; its Remove is already on the way.
		}
	}
}
