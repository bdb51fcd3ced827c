package server

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/parleychat/parley/pkg/protocol"
)

// Router decides recipients for each classified line and pushes into their
// outbound queues. Fan-out always iterates a registry snapshot, never the
// live map, so delivery work cannot block registration or removal.
type Router struct {
	registry *Registry
	filter   *Filter
	metrics  *Metrics
}

// NewRouter creates a router over the given registry and filter.
func NewRouter(registry *Registry, filter *Filter, metrics *Metrics) *Router {
	return &Router{
		registry: registry,
		filter:   filter,
		metrics:  metrics,
	}
}

// Route classifies one inbound line from sender and dispatches it.
func (rt *Router) Route(sender *Session, line string) {
	msg, err := protocol.Classify(line)
	if err != nil {
		switch {
		case errors.Is(err, protocol.ErrMalformedPrivate):
			_ = sender.Send(protocol.PrivateUsage)
		case errors.Is(err, protocol.ErrMalformedExclusion):
			debugLog.Printf("Session %q: exclusion line without content dropped", sender.Name())
		}
		return
	}

	rt.metrics.RecordMessageRouted(msg.Kind.String())

	if msg.Kind == protocol.KindCommand {
		rt.handleCommand(sender, msg.Command)
		return
	}

	// Single filter checkpoint, before any fan-out. Applies to all three
	// addressing modes, exclusion included.
	if rt.filter.ContainsBanned(msg.Body) {
		rt.metrics.RecordFilterBlocked()
		_ = sender.Send(protocol.BlockedNotice)
		return
	}

	switch msg.Kind {
	case protocol.KindBroadcast:
		rt.broadcast(sender, msg.Body)
	case protocol.KindPrivate:
		rt.private(sender, msg)
	case protocol.KindExclusion:
		rt.exclude(sender, msg)
	}
}

// broadcast fans a plain message out to every member, the sender included:
// everyone shares the same transcript.
func (rt *Router) broadcast(sender *Session, body string) {
	snapshot := rt.registry.Snapshot()
	line := protocol.FormatBroadcast(sender.Name(), body)

	for _, sess := range snapshot {
		_ = sess.Send(line)
	}
	rt.metrics.RecordBroadcastFanout("broadcast", len(snapshot))
}

// private delivers to each resolvable recipient, reports each unresolvable
// one back to the sender, then sends the sender a single consolidated
// confirmation echoing the recipient list as typed.
func (rt *Router) private(sender *Session, msg protocol.Message) {
	snapshot := rt.registry.Snapshot()
	delivered := 0

	for _, recipient := range msg.Recipients {
		if target, ok := snapshot[recipient]; ok {
			_ = target.Send(protocol.FormatPrivateFrom(sender.Name(), msg.Body))
			delivered++
		} else {
			_ = sender.Send(protocol.FormatUserNotFound(recipient))
		}
	}

	_ = sender.Send(protocol.FormatPrivateTo(msg.RecipientList, msg.Body))
	rt.metrics.RecordBroadcastFanout("private", delivered)
}

// exclude delivers to every member except the excluded name and the sender.
func (rt *Router) exclude(sender *Session, msg protocol.Message) {
	snapshot := rt.registry.Snapshot()
	line := protocol.FormatExclusion(sender.Name(), msg.Excluded, msg.Body)
	delivered := 0

	for name, sess := range snapshot {
		if name == msg.Excluded || name == sender.Name() {
			continue
		}
		_ = sess.Send(line)
		delivered++
	}
	rt.metrics.RecordBroadcastFanout("exclusion", delivered)
}

// handleCommand answers local commands on the requesting session's own
// queue; nothing here touches the registry beyond read access.
func (rt *Router) handleCommand(sender *Session, command string) {
	switch command {
	case "/users":
		_ = sender.Send(protocol.FormatRoster(rt.registry.Names()))
	case "/banned":
		_ = sender.Send(protocol.FormatBannedPhrases(rt.filter.Phrases()))
	case "/help":
		_ = sender.Send(protocol.HelpText)
	case "/threads":
		_ = sender.Send(rt.describeTasks())
	case "/quit":
		_ = sender.Send(protocol.Disconnected)
		sender.Close()
	default:
		_ = sender.Send(protocol.UnknownCommand)
	}
}

// describeTasks reports the live server tasks: the runtime goroutine count
// plus the reader/writer pair every registered session runs.
func (rt *Router) describeTasks() string {
	names := rt.registry.Names()

	var b strings.Builder
	fmt.Fprintf(&b, "Active goroutines: %d", runtime.NumGoroutine())
	for _, name := range names {
		fmt.Fprintf(&b, "\nSession %s: reader, writer", name)
	}
	return b.String()
}
