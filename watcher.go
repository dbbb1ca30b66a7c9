package stray

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
)

// StatusNotifierWatcherInterface and StatusNotifierWatcherPath are the
// well-known interface name and object path the Watcher is served at.
const (
	StatusNotifierWatcherInterface = "org.kde.StatusNotifierWatcher"
	StatusNotifierWatcherPath      = "/StatusNotifierWatcher"
)

// protocolVersion is fixed at 0 per spec.md §4.D.
const protocolVersion int32 = 0

// Watcher implements org.kde.StatusNotifierWatcher: the registry every
// StatusNotifierItem and StatusNotifierHost on the bus announces itself
// to. Exactly one Watcher should own the well-known name at a time; a
// second Listen call on another process fails with ErrWatcherNameTaken.
//
// The registry is mutated both from D-Bus method dispatch and from
// in-process callers (Engine.NewHost registering its hosts, and the
// peer-death watcher in peerdeath.go removing items and hosts), so every
// access to it takes the mutex.
type Watcher struct {
	conn *dbus.Conn

	mu      sync.Mutex
	closed  bool
	hosts   []string
	items   []string
	props   *prop.Properties

	added   chan<- string
	removed chan<- string
}

// NewWatcher returns a Watcher bound to conn. added and removed, if
// non-nil, receive the composite registration string of every item the
// watcher registers and unregisters (explicitly or via peer death); this
// is how the tracker (tracker.go) learns to fetch/publish and to publish
// NotifierItemMessageRemove (spec.md invariant 2) without going back out
// over the bus for state that already lives in this same process.
func NewWatcher(conn *dbus.Conn, added, removed chan<- string) *Watcher {
	return &Watcher{conn: conn, added: added, removed: removed}
}

// Listen requests org.kde.StatusNotifierWatcher and exports the Watcher
// object. It returns ErrWatcherNameTaken if another watcher already owns
// the name -- per spec.md §7 this is the one failure fatal to the whole
// engine.
func (w *Watcher) Listen() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	reply, err := w.conn.RequestName(StatusNotifierWatcherInterface, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("stray: request name %s: %w", StatusNotifierWatcherInterface, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return ErrWatcherNameTaken
	}

	if err := w.conn.Export(w, StatusNotifierWatcherPath, StatusNotifierWatcherInterface); err != nil {
		return fmt.Errorf("stray: export %s: %w", StatusNotifierWatcherInterface, err)
	}

	w.exportIntrospection()
	w.exportPropertiesLocked()

	slog.Info("status notifier watcher listening", "name", StatusNotifierWatcherInterface)
	return nil
}

// Close releases the well-known name. The Watcher cannot be reused after
// Close.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	_, err := w.conn.ReleaseName(StatusNotifierWatcherInterface)
	return err
}

// itemIdentifier builds the composite "sender_unique_name + object_path"
// registration string for a RegisterStatusNotifierItem call, per spec.md
// §4.D and §6: service may itself already be a unique name (the item
// defaults to StatusNotifierItemPath) or a bare object path (the item is
// reachable at that path under the caller's own unique name, sender).
func itemIdentifier(service string, sender dbus.Sender) string {
	if strings.HasPrefix(service, "/") {
		return string(sender) + service
	}
	return service + StatusNotifierItemPath
}

// RegisterStatusNotifierItem is exported to D-Bus. service is either an
// object path (the caller's StatusNotifierItem is reachable relative to
// the caller's own unique name) or a unique bus name (the item defaults
// to StatusNotifierItemPath). The registry stores and emits the
// composite "sender_unique_name + object_path" string, per spec.md §4.D
// and §6, regardless of which form the caller used.
func (w *Watcher) RegisterStatusNotifierItem(service string, sender dbus.Sender) *dbus.Error {
	identifier := itemIdentifier(service, sender)

	w.mu.Lock()

	if w.closed {
		w.mu.Unlock()
		return dbusErrorf("stray.Closed", "watcher is closed")
	}

	for _, existing := range w.items {
		if existing == identifier {
			w.mu.Unlock()
			return nil
		}
	}

	w.items = append(w.items, identifier)
	slog.Info("status notifier item registered", "item", identifier)

	if err := w.conn.Emit(StatusNotifierWatcherPath, StatusNotifierWatcherInterface+".StatusNotifierItemRegistered", identifier); err != nil {
		slog.Warn("failed to emit StatusNotifierItemRegistered", "error", err)
	}
	w.exportPropertiesLocked()
	w.mu.Unlock()

	if w.added != nil {
		w.added <- identifier
	}

	return nil
}

// RegisterStatusNotifierHost is exported to D-Bus. service is the host's
// own well-known bus name.
func (w *Watcher) RegisterStatusNotifierHost(service string) *dbus.Error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return dbusErrorf("stray.Closed", "watcher is closed")
	}

	for _, existing := range w.hosts {
		if existing == service {
			return nil
		}
	}

	w.hosts = append(w.hosts, service)
	slog.Info("status notifier host registered", "host", service)

	if err := w.conn.Emit(StatusNotifierWatcherPath, StatusNotifierWatcherInterface+".StatusNotifierHostRegistered"); err != nil {
		slog.Warn("failed to emit StatusNotifierHostRegistered", "error", err)
	}
	w.exportPropertiesLocked()

	return nil
}

// UnregisterStatusNotifierItem is exported to D-Bus. Per spec.md §4.D the
// match is a substring match against the composite registration string:
// service may be the bare unique name (as sent by the peer-death
// watcher) or the full composite.
func (w *Watcher) UnregisterStatusNotifierItem(service string) *dbus.Error {
	w.unregisterItemMatching(service)
	return nil
}

// unregisterHostByName removes a host whose well-known name matches
// exactly; called by the peer-death watcher when a host's owner
// disappears.
func (w *Watcher) unregisterHostByName(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i, host := range w.hosts {
		if host != name {
			continue
		}
		w.hosts = append(w.hosts[:i], w.hosts[i+1:]...)
		slog.Info("status notifier host unregistered", "host", name)
		if err := w.conn.Emit(StatusNotifierWatcherPath, StatusNotifierWatcherInterface+".StatusNotifierHostUnregistered"); err != nil {
			slog.Warn("failed to emit StatusNotifierHostUnregistered", "error", err)
		}
		w.exportPropertiesLocked()
		return
	}
}

// findItemMatching returns the index of the first registered item whose
// composite identifier contains service as a substring, or -1. A
// substring match (rather than equality) is required because a caller
// unregistering explicitly, and the peer-death watcher unregistering on
// NameOwnerChanged, each supply a different fragment of the composite
// string (the full "sender+path" vs. just the bare sender).
func findItemMatching(items []string, service string) int {
	for i, item := range items {
		if strings.Contains(item, service) {
			return i
		}
	}
	return -1
}

func (w *Watcher) unregisterItemMatching(service string) {
	w.mu.Lock()

	idx := findItemMatching(w.items, service)

	if idx == -1 {
		w.mu.Unlock()
		return
	}

	identifier := w.items[idx]
	w.items = append(w.items[:idx], w.items[idx+1:]...)
	slog.Info("status notifier item unregistered", "item", identifier)

	if err := w.conn.Emit(StatusNotifierWatcherPath, StatusNotifierWatcherInterface+".StatusNotifierItemUnregistered", identifier); err != nil {
		slog.Warn("failed to emit StatusNotifierItemUnregistered", "error", err)
	}
	w.exportPropertiesLocked()
	w.mu.Unlock()

	if w.removed != nil {
		w.removed <- identifier
	}
}

// IsStatusNotifierHostRegistered is exported to D-Bus as a property.
func (w *Watcher) IsStatusNotifierHostRegistered() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.hosts) > 0
}

// RegisteredStatusNotifierItems returns a snapshot of the items registry.
func (w *Watcher) RegisteredStatusNotifierItems() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.items))
	copy(out, w.items)
	return out
}

// exportPropertiesLocked (re-)exports the watcher's three D-Bus
// properties. Must be called with w.mu held, matching the teacher's
// exportProperties pattern of re-exporting on every registry mutation.
func (w *Watcher) exportPropertiesLocked() {
	w.props = prop.Export(w.conn, StatusNotifierWatcherPath, prop.Map{
		StatusNotifierWatcherInterface: map[string]*prop.Prop{
			"RegisteredStatusNotifierItems": {
				Value:    append([]string(nil), w.items...),
				Writable: false,
				Emit:     prop.EmitTrue,
			},
			"IsStatusNotifierHostRegistered": {
				Value:    len(w.hosts) > 0,
				Writable: false,
				Emit:     prop.EmitTrue,
			},
			"ProtocolVersion": {
				Value:    protocolVersion,
				Writable: false,
				Emit:     prop.EmitTrue,
			},
		},
	})
}

func (w *Watcher) exportIntrospection() {
	node := &introspect.Node{
		Name: StatusNotifierWatcherPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{
				Name: StatusNotifierWatcherInterface,
				Methods: []introspect.Method{
					{Name: "RegisterStatusNotifierItem", Args: []introspect.Arg{
						{Name: "service", Type: "s", Direction: "in"},
					}},
					{Name: "RegisterStatusNotifierHost", Args: []introspect.Arg{
						{Name: "service", Type: "s", Direction: "in"},
					}},
					{Name: "UnregisterStatusNotifierItem", Args: []introspect.Arg{
						{Name: "service", Type: "s", Direction: "in"},
					}},
				},
				Signals: []introspect.Signal{
					{Name: "StatusNotifierItemRegistered", Args: []introspect.Arg{{Name: "service", Type: "s"}}},
					{Name: "StatusNotifierItemUnregistered", Args: []introspect.Arg{{Name: "service", Type: "s"}}},
					{Name: "StatusNotifierHostRegistered"},
					{Name: "StatusNotifierHostUnregistered"},
				},
			},
		},
	}

	if err := w.conn.Export(introspect.NewIntrospectable(node), StatusNotifierWatcherPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		slog.Warn("failed to export watcher introspection", "error", err)
	}
}

func dbusErrorf(name, format string, args ...any) *dbus.Error {
	return dbus.NewError(name, []any{fmt.Sprintf(format, args...)})
}
