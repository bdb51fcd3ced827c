package server

import (
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/parleychat/parley/pkg/protocol"
)

func TestRegistryRegister(t *testing.T) {
	srv := newTestServer(t, testConfig())

	t.Run("BindsAndBroadcasts", func(t *testing.T) {
		alice := newMemberSession(t, srv, "alice")

		got := queuedLines(alice)
		want := []string{
			protocol.FormatRoster([]string{"alice"}),
			protocol.FormatSystem("alice joined"),
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Join broadcast = %v, want %v", got, want)
		}

		bob := newMemberSession(t, srv, "bob")

		got = queuedLines(alice)
		want = []string{
			protocol.FormatRoster([]string{"alice", "bob"}),
			protocol.FormatSystem("bob joined"),
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Existing member saw %v, want %v", got, want)
		}

		got = queuedLines(bob)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("New member saw %v, want %v", got, want)
		}
	})

	t.Run("DuplicateNameRejected", func(t *testing.T) {
		impostor := newSession(srv, newMockConn(), "tcp")
		if srv.registry.Register("alice", impostor) {
			t.Fatal("Register should reject a taken name")
		}

		if srv.registry.Count() != 2 {
			t.Errorf("Rejected registration mutated the registry: count=%d", srv.registry.Count())
		}
		if len(queuedLines(impostor)) != 0 {
			t.Error("Rejected registration should broadcast nothing")
		}
	})
}

func TestRegistryRemove(t *testing.T) {
	srv := newTestServer(t, testConfig())
	alice := newMemberSession(t, srv, "alice")
	bob := newMemberSession(t, srv, "bob")
	queuedLines(alice)

	if !srv.registry.Remove("bob", bob) {
		t.Fatal("Remove should report the removal")
	}

	got := queuedLines(alice)
	want := []string{
		protocol.FormatRoster([]string{"alice"}),
		protocol.FormatSystem("bob left"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Leave broadcast = %v, want %v", got, want)
	}

	// Second removal of the same name is a no-op
	if srv.registry.Remove("bob", bob) {
		t.Error("Repeated Remove should report nothing removed")
	}
	if lines := queuedLines(alice); len(lines) != 0 {
		t.Errorf("Repeated Remove should broadcast nothing, got %v", lines)
	}
}

func TestRegistryRemoveRequiresOwningSession(t *testing.T) {
	srv := newTestServer(t, testConfig())
	alice := newMemberSession(t, srv, "alice")
	owner := newMemberSession(t, srv, "bob")
	queuedLines(alice)

	stranger := newSession(srv, newMockConn(), "tcp")
	if srv.registry.Remove("bob", stranger) {
		t.Fatal("Remove should refuse a session that does not own the name")
	}

	if srv.registry.Snapshot()["bob"] != owner {
		t.Error("Owner should remain bound after a non-owner removal attempt")
	}
	if lines := queuedLines(alice); len(lines) != 0 {
		t.Errorf("Refused removal should broadcast nothing, got %v", lines)
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	srv := newTestServer(t, testConfig())
	for _, name := range []string{"zoe", "alice", "mike"} {
		newMemberSession(t, srv, name)
	}

	want := []string{"alice", "mike", "zoe"}
	if got := srv.registry.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestRegistrySnapshotIndependent(t *testing.T) {
	srv := newTestServer(t, testConfig())
	newMemberSession(t, srv, "alice")

	snapshot := srv.registry.Snapshot()
	delete(snapshot, "alice")

	if srv.registry.Count() != 1 {
		t.Error("Mutating a snapshot changed the registry")
	}
}

func TestRegistryConcurrentSameName(t *testing.T) {
	srv := newTestServer(t, testConfig())

	const contenders = 20
	var wg sync.WaitGroup
	wins := make(chan *Session, contenders)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess := newSession(srv, newMockConn(), "tcp")
			if srv.registry.Register("alice", sess) {
				wins <- sess
			}
		}()
	}
	wg.Wait()
	close(wins)

	var winners []*Session
	for sess := range wins {
		winners = append(winners, sess)
	}
	if len(winners) != 1 {
		t.Fatalf("Expected exactly one registration to win, got %d", len(winners))
	}

	snapshot := srv.registry.Snapshot()
	if snapshot["alice"] != winners[0] {
		t.Error("Registry holds a different session than the winner")
	}
}

func TestRegistryConcurrentDistinctNames(t *testing.T) {
	srv := newTestServer(t, testConfig())

	const members = 50
	var wg sync.WaitGroup
	for i := 0; i < members; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("user-%02d", i)
			sess := newSession(srv, newMockConn(), "tcp")
			if !srv.registry.Register(name, sess) {
				t.Errorf("Registration of unique name %q failed", name)
			}
		}(i)
	}
	wg.Wait()

	if got := srv.registry.Count(); got != members {
		t.Errorf("Expected %d members, got %d", members, got)
	}
}

func TestRegistryBroadcastFullQueueDisconnects(t *testing.T) {
	cfg := testConfig()
	cfg.QueueCapacity = 2
	srv := newTestServer(t, cfg)

	stuck := newMemberSession(t, srv, "stuck")
	queuedLines(stuck)

	// Saturate the stuck member's queue, then trigger a registry broadcast.
	for i := 0; i < cfg.QueueCapacity; i++ {
		if err := stuck.TrySend("filler"); err != nil {
			t.Fatalf("TrySend failed: %v", err)
		}
	}
	newMemberSession(t, srv, "bob")

	waitFor(t, func() bool {
		return stuck.State() == StateClosed
	}, "stuck session was not disconnected after a dropped broadcast")

	waitFor(t, func() bool {
		_, present := srv.registry.Snapshot()["stuck"]
		return !present
	}, "stuck session was not removed from the registry")
}
