package stray

import (
	"log/slog"

	"github.com/godbus/dbus/v5"
)

// PeerDeathWatcher subscribes to org.freedesktop.DBus.NameOwnerChanged and
// tells a Watcher to drop any item or host whose owning bus name
// disappears, so a crashed application's tray icon does not linger
// forever (spec.md §4.F). It runs as its own task, separate from the
// Watcher itself, matching spec.md §5's task list rather than the
// teacher's choice of folding this into the watcher object.
type PeerDeathWatcher struct {
	conn    *dbus.Conn
	watcher *Watcher
	signals chan *dbus.Signal
}

// NewPeerDeathWatcher returns a watcher that will unregister items/hosts
// from w whenever their owner leaves the bus.
func NewPeerDeathWatcher(conn *dbus.Conn, w *Watcher) *PeerDeathWatcher {
	return &PeerDeathWatcher{conn: conn, watcher: w}
}

// Listen subscribes to NameOwnerChanged. Run must be called afterward to
// actually process signals.
func (p *PeerDeathWatcher) Listen() error {
	rule := "type='signal',sender='org.freedesktop.DBus',interface='org.freedesktop.DBus',member='NameOwnerChanged'"
	if call := p.conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, rule); call.Err != nil {
		return call.Err
	}

	p.signals = make(chan *dbus.Signal, defaultBroadcastCapacity)
	p.conn.Signal(p.signals)
	return nil
}

// Run processes NameOwnerChanged signals until the channel is closed by
// Close. It is meant to run in its own goroutine.
func (p *PeerDeathWatcher) Run() {
	for sig := range p.signals {
		if sig.Name != "org.freedesktop.DBus.NameOwnerChanged" {
			continue
		}
		p.handle(sig)
	}
}

func (p *PeerDeathWatcher) handle(sig *dbus.Signal) {
	name, ok := departedName(sig)
	if !ok {
		return
	}

	slog.Debug("peer left bus", "name", name)
	for findItemMatching(p.watcher.RegisteredStatusNotifierItems(), name) != -1 {
		p.watcher.unregisterItemMatching(name)
	}
	p.watcher.unregisterHostByName(name)
}

// departedName extracts the bus name from a NameOwnerChanged signal body
// (name, oldOwner, newOwner), returning ok=false unless the body has the
// expected shape, oldOwner is non-empty and newOwner is empty -- i.e. the
// name just lost its owner rather than gaining or swapping one.
func departedName(sig *dbus.Signal) (string, bool) {
	if len(sig.Body) != 3 {
		return "", false
	}

	name, _ := sig.Body[0].(string)
	oldOwner, _ := sig.Body[1].(string)
	newOwner, _ := sig.Body[2].(string)

	if oldOwner == "" || newOwner != "" {
		return "", false
	}

	return name, true
}

// Close removes the watcher's signal channel and match rule.
func (p *PeerDeathWatcher) Close() {
	if p.signals == nil {
		return
	}
	p.conn.RemoveSignal(p.signals)
	rule := "type='signal',sender='org.freedesktop.DBus',interface='org.freedesktop.DBus',member='NameOwnerChanged'"
	p.conn.BusObject().Call("org.freedesktop.DBus.RemoveMatch", 0, rule)
}
