package stray

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/godbus/dbus/v5"
)

// maxMenuRecursionDepth is the default bound on how deep a GetLayout call
// descends when Config.MenuRecursionDepth is not set; deeper submenus are
// silently truncated (spec.md §4.E), matching the original
// implementation's watch_menu call (GetLayout(0, 10, [])).
const maxMenuRecursionDepth = 10

// Tracker watches the set of items known to a Watcher and maintains a
// live fetch for each: an initial Properties.GetAll plus menu fetch, then
// a refetch whenever PropertiesChanged fires on org.kde.StatusNotifierItem
// or any signal fires on com.canonical.dbusmenu, matching the original's
// watch_notifier_props/watch_menu pair (one goroutine per item mirrors the
// teacher's per-item subscribe()/handleSignal goroutine).
//
// Results are published on out; Close stops every per-item goroutine but
// leaves out open (the Engine closes it on Shutdown).
type Tracker struct {
	conn           *dbus.Conn
	out            *bus[NotifierItemMessage]
	recursionDepth int32

	added   chan string
	removed chan string
	done    chan struct{}

	items map[string]chan struct{}
}

// NewTracker returns a Tracker that publishes to out. added/removed are
// the same channels passed to NewWatcher; the tracker owns consuming them
// for its whole lifetime. recursionDepth caps GetLayout recursion
// (maxMenuRecursionDepth is used if 0 or negative).
func NewTracker(conn *dbus.Conn, out *bus[NotifierItemMessage], added, removed chan string, recursionDepth int32) *Tracker {
	if recursionDepth <= 0 {
		recursionDepth = maxMenuRecursionDepth
	}
	return &Tracker{
		conn:           conn,
		out:            out,
		recursionDepth: recursionDepth,
		added:          added,
		removed:        removed,
		done:           make(chan struct{}),
		items:          make(map[string]chan struct{}),
	}
}

// Run dispatches added/removed registration events until Close is called.
// It is meant to be run in its own goroutine (spec.md §5, task "notifier
// registry").
func (t *Tracker) Run() {
	for {
		select {
		case <-t.done:
			return
		case identifier, ok := <-t.added:
			if !ok {
				return
			}
			t.startItem(identifier)
		case identifier, ok := <-t.removed:
			if !ok {
				return
			}
			t.stopItem(identifier)
			t.out.publish(NotifierItemMessage{Kind: NotifierItemMessageRemove, Address: identifier})
		}
	}
}

// Close stops every per-item goroutine and the Run loop.
func (t *Tracker) Close() {
	close(t.done)
	for _, stop := range t.items {
		close(stop)
	}
	t.items = nil
}

func (t *Tracker) startItem(identifier string) {
	if _, exists := t.items[identifier]; exists {
		return
	}

	addr, err := ParseNotifierAddress(identifier)
	if err != nil {
		slog.Warn("dropping item with unparsable address", "item", identifier, "error", err)
		return
	}

	stop := make(chan struct{})
	t.items[identifier] = stop

	go t.watchItem(addr, identifier, stop)
}

func (t *Tracker) stopItem(identifier string) {
	stop, ok := t.items[identifier]
	if !ok {
		return
	}
	close(stop)
	delete(t.items, identifier)
}

// watchItem fetches properties (and, if present, the menu) once
// immediately, then on every subsequent PropertiesChanged/dbusmenu
// signal, until stop is closed.
func (t *Tracker) watchItem(addr NotifierAddress, identifier string, stop <-chan struct{}) {
	signals := make(chan *dbus.Signal, defaultBroadcastCapacity)
	t.conn.Signal(signals)
	defer t.conn.RemoveSignal(signals)

	rules := []string{
		fmt.Sprintf("type='signal',sender='%s',path='%s',interface='org.freedesktop.DBus.Properties',member='PropertiesChanged'", addr.Destination, addr.Path),
		fmt.Sprintf("type='signal',sender='%s',interface='%s'", addr.Destination, StatusNotifierItemInterface),
		fmt.Sprintf("type='signal',sender='%s',interface='%s'", addr.Destination, MenuInterface),
	}
	for _, rule := range rules {
		if call := t.conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, rule); call.Err != nil {
			slog.Warn("failed to add match rule", "item", identifier, "error", call.Err)
		}
	}
	defer func() {
		for _, rule := range rules {
			t.conn.BusObject().Call("org.freedesktop.DBus.RemoveMatch", 0, rule)
		}
	}()

	var lastItem StatusNotifierItem
	var haveItem bool
	if item, ok := t.fetchAndPublish(addr, identifier); ok {
		lastItem, haveItem = item, true
	}

	for {
		select {
		case <-stop:
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}

			// conn.Signal delivers every signal the connection receives
			// to every registered channel, not just the ones matching
			// this goroutine's own AddMatch rules: two items registered
			// at the same object path but owned by different unique
			// names (the case the composite registration string exists
			// to disambiguate, spec.md §4.D) would otherwise each wake
			// on the other's signals.
			if sig.Sender != addr.Destination {
				continue
			}

			// DBusMenu signals (LayoutUpdated, ItemsPropertiesUpdated)
			// are emitted from the menu object path advertised by the
			// item (lastItem.Menu), not from addr.Path -- the two
			// differ for any real tray item. Check the menu-interface
			// case, and its own path, before the item-path filter below
			// would otherwise discard it (spec.md §4.E step 5).
			if strings.HasPrefix(sig.Name, MenuInterface+".") {
				if haveItem && lastItem.Menu != "" && sig.Path == dbus.ObjectPath(lastItem.Menu) {
					t.refetchMenuOnly(addr, identifier, lastItem)
				}
				continue
			}

			if sig.Path != addr.Path {
				continue
			}

			if item, ok := t.fetchAndPublish(addr, identifier); ok {
				lastItem, haveItem = item, true
			}
		}
	}
}

// fetchAndPublish performs one Properties.GetAll + conditional menu fetch
// cycle and publishes the result, per the original's
// fetch_properties_and_update. A decode failure (other than a missing Id,
// which is an expected, silent skip per spec.md §3) is logged and the
// cycle is dropped without publishing. ok is false when nothing was
// published, so callers know not to update their cached item.
func (t *Tracker) fetchAndPublish(addr NotifierAddress, identifier string) (item StatusNotifierItem, ok bool) {
	obj := t.conn.Object(addr.Destination, dbus.ObjectPath(addr.Path))

	var props map[string]dbus.Variant
	err := obj.Call("org.freedesktop.DBus.Properties.GetAll", 0, StatusNotifierItemInterface).Store(&props)
	if err != nil {
		slog.Warn("failed to fetch item properties", "item", identifier, "error", err)
		return StatusNotifierItem{}, false
	}

	item, err = newStatusNotifierItem(props)
	if err != nil {
		slog.Debug("skipping item with no Id", "item", identifier)
		return StatusNotifierItem{}, false
	}

	msg := NotifierItemMessage{Kind: NotifierItemMessageUpdate, Address: identifier, Item: item}

	if item.Menu != "" {
		msg.Menu = t.fetchMenu(addr, item.Menu, identifier)
	}

	t.out.publish(msg)
	return item, true
}

// refetchMenuOnly re-fetches only the dbusmenu layout and publishes an
// Update that reuses lastItem, per spec.md §4.E step 5 and the Open
// Question resolved in DESIGN.md: a DBusMenu-interface signal does not
// also re-read SNI properties.
func (t *Tracker) refetchMenuOnly(addr NotifierAddress, identifier string, lastItem StatusNotifierItem) {
	if lastItem.Menu == "" {
		return
	}

	menu := t.fetchMenu(addr, lastItem.Menu, identifier)
	t.out.publish(NotifierItemMessage{
		Kind:    NotifierItemMessageUpdate,
		Address: identifier,
		Item:    lastItem,
		Menu:    menu,
	})
}

// fetchMenu fetches the layout tree and, best-effort, the dbusmenu
// Version/Status properties (SPEC_FULL §3). A menu fetch failure yields a
// zero TrayMenu; per spec.md §4.E this is still published with the SNI
// record rather than dropping the whole Update.
func (t *Tracker) fetchMenu(addr NotifierAddress, menuPath, identifier string) TrayMenu {
	menu := NewMenu(t.conn, addr.Destination, menuPath)

	_, layout, err := menu.GetLayout(0, t.recursionDepth, nil)
	if err != nil {
		slog.Debug("failed to fetch menu layout", "item", identifier, "menu", menuPath, "error", err)
		return TrayMenu{}
	}

	if version, status, err := menu.Properties(); err != nil {
		slog.Debug("failed to fetch menu properties", "item", identifier, "menu", menuPath, "error", err)
	} else {
		layout.Version = version
		layout.Status = status
	}

	return layout
}
