package stray

import (
	"log/slog"

	"github.com/godbus/dbus/v5"
)

// CommandDispatcher consumes NotifierItemCommand values pushed by hosts
// (via Host.SendCommand) and forwards each as a com.canonical.dbusmenu
// Event call to the application that owns the menu, matching the
// original's dispatch_ui_command. Failures are logged and otherwise
// swallowed: a UI click that could not be delivered is not something the
// caller can usefully retry (spec.md §4.H).
type CommandDispatcher struct {
	conn     *dbus.Conn
	commands <-chan NotifierItemCommand
	done     chan struct{}
}

// NewCommandDispatcher returns a dispatcher reading from commands.
func NewCommandDispatcher(conn *dbus.Conn, commands <-chan NotifierItemCommand) *CommandDispatcher {
	return &CommandDispatcher{conn: conn, commands: commands, done: make(chan struct{})}
}

// Run processes commands until the channel closes or Close is called. It
// is meant to run in its own goroutine (spec.md §5).
func (d *CommandDispatcher) Run() {
	for {
		select {
		case <-d.done:
			return
		case cmd, ok := <-d.commands:
			if !ok {
				return
			}
			d.dispatch(cmd)
		}
	}
}

func (d *CommandDispatcher) dispatch(cmd NotifierItemCommand) {
	addr, err := ParseNotifierAddress(cmd.NotifierAddress)
	if err != nil {
		slog.Warn("dropping command with unparsable address", "address", cmd.NotifierAddress, "error", err)
		return
	}

	menu := NewMenu(d.conn, addr.Destination, cmd.MenuPath)
	if err := menu.Clicked(cmd.SubmenuID); err != nil {
		slog.Warn("failed to dispatch menu click", "address", cmd.NotifierAddress, "menu", cmd.MenuPath, "id", cmd.SubmenuID, "error", err)
	}
}

// Close stops Run.
func (d *CommandDispatcher) Close() {
	close(d.done)
}
