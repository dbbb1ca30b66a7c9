package stray

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/godbus/dbus/v5"
)

// StatusNotifierHostInterface is the well-known interface a host registers
// under with the Watcher; the bus name itself is per-instance (see
// hostBusName).
const StatusNotifierHostInterface = "org.freedesktop.StatusNotifierHost"

// NotifierItemMessage is one event published to every subscribed Host:
// either a StatusNotifierItem (plus its menu, if any) being added or
// refreshed, or an item going away. Kind tells the two apart; Item and
// Menu are only filled in for an update, mirroring the original implementation's
// Message::Update/Message::Remove enum (spec.md §3, §4.E).
type NotifierItemMessage struct {
	Kind NotifierItemMessageKind

	// Address is always set: the registration string identifying which
	// item this message concerns.
	Address string

	// Item and Menu are populated for Kind == NotifierItemMessageUpdate.
	Item StatusNotifierItem
	Menu TrayMenu
}

// NotifierItemMessageKind discriminates NotifierItemMessage.
type NotifierItemMessageKind int

const (
	NotifierItemMessageUpdate NotifierItemMessageKind = iota
	NotifierItemMessageRemove
)

// NotifierItemCommand is a UI-originated instruction the command
// dispatcher (command.go) forwards to the target application over
// dbusmenu (spec.md §4.H).
type NotifierItemCommand struct {
	NotifierAddress string
	MenuPath        string
	SubmenuID       int32
}

// Host is a subscriber to the tracker's broadcast stream, registered with
// the Watcher as an org.freedesktop.StatusNotifierHost-<pid>-<id> bus
// name. Recv delivers NotifierItemMessage values in publish order; a slow
// Host that falls behind gets ErrLagged once, then resumes normal
// delivery.
type Host struct {
	conn     *dbus.Conn
	busName  string
	messages chan NotifierItemMessage
	lagged   *bool
	source   *bus[NotifierItemMessage]
	commands chan<- NotifierItemCommand
}

// hostBusName builds the well-known name a host registers under, matching
// the original's "org.freedesktop.StatusNotifierHost-{pid}-{id}" format
// (src/notifier_host/mod.rs).
func hostBusName(id string) string {
	return fmt.Sprintf("%s-%d-%s", StatusNotifierHostInterface, os.Getpid(), id)
}

// newHost subscribes to src and requests a well-known bus name for conn.
// commands, if non-nil, lets callers push NotifierItemCommand values that
// the engine's command dispatcher will forward; Host only sends on it,
// from SendCommand.
func newHost(conn *dbus.Conn, src *bus[NotifierItemMessage], id string, commands chan<- NotifierItemCommand) (*Host, error) {
	name := hostBusName(id)

	reply, err := conn.RequestName(name, dbus.NameFlagDoNotQueue)
	if err != nil {
		return nil, fmt.Errorf("stray: request host name %s: %w", name, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return nil, fmt.Errorf("stray: host name %s already taken", name)
	}

	ch, lagged := src.subscribe()

	h := &Host{
		conn:     conn,
		busName:  name,
		messages: ch,
		lagged:   lagged,
		source:   src,
		commands: commands,
	}

	slog.Info("status notifier host listening", "name", name)
	return h, nil
}

// BusName returns the well-known name this host registered, the string a
// caller passes to Watcher.RegisterStatusNotifierHost.
func (h *Host) BusName() string {
	return h.busName
}

// Recv blocks for the next message. It returns ErrHostClosed once the host
// or the underlying bus has been closed and all buffered messages drained, and
// wraps ErrLagged into the returned error (without discarding the message
// that follows it) the first time this host is found to have dropped
// messages.
func (h *Host) Recv() (NotifierItemMessage, error) {
	msg, ok := <-h.messages
	if !ok {
		return NotifierItemMessage{}, ErrHostClosed
	}

	if *h.lagged {
		*h.lagged = false
		return msg, ErrLagged
	}

	return msg, nil
}

// SendCommand forwards cmd to the engine's command dispatcher, if one was
// wired in at construction. It returns false if no dispatcher channel was
// configured for this host.
func (h *Host) SendCommand(cmd NotifierItemCommand) bool {
	if h.commands == nil {
		return false
	}
	h.commands <- cmd
	return true
}

// Close unsubscribes this host from the tracker stream and releases its
// well-known bus name.
func (h *Host) Close() error {
	h.source.unsubscribe(h.messages)
	_, err := h.conn.ReleaseName(h.busName)
	return err
}
