package stray

import (
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
)

// Engine wires the Watcher, Tracker, PeerDeathWatcher and CommandDispatcher
// together onto a single session-bus connection and runs them as the set
// of background tasks described for this system: a notifier registry, a
// peer-death watcher, one fetch loop per tracked item, and a command
// dispatcher. NewHost gives callers a way to subscribe to the resulting
// NotifierItemMessage stream without touching any of the above directly.
type Engine struct {
	conn   *dbus.Conn
	config Config

	watcher    *Watcher
	tracker    *Tracker
	peerDeath  *PeerDeathWatcher
	dispatcher *CommandDispatcher

	stream   *bus[NotifierItemMessage]
	commands chan NotifierItemCommand

	added   chan string
	removed chan string
}

// NewEngine connects to the session bus and assembles every component,
// but does not yet request any bus names or start any goroutines; call
// Start for that.
func NewEngine(cfg Config) (*Engine, error) {
	cfg.applyDefaults()

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("stray: connect to session bus: %w", err)
	}

	added := make(chan string, cfg.BroadcastCapacity)
	removed := make(chan string, cfg.BroadcastCapacity)
	commands := make(chan NotifierItemCommand, cfg.BroadcastCapacity)
	stream := newBus[NotifierItemMessage](cfg.BroadcastCapacity)

	watcher := NewWatcher(conn, added, removed)
	tracker := NewTracker(conn, stream, added, removed, cfg.MenuRecursionDepth)
	peerDeath := NewPeerDeathWatcher(conn, watcher)
	dispatcher := NewCommandDispatcher(conn, commands)

	return &Engine{
		conn:       conn,
		config:     cfg,
		watcher:    watcher,
		tracker:    tracker,
		peerDeath:  peerDeath,
		dispatcher: dispatcher,
		stream:     stream,
		commands:   commands,
		added:      added,
		removed:    removed,
	}, nil
}

// Start requests the watcher's well-known name and launches the
// background tasks. It returns ErrWatcherNameTaken if another
// org.kde.StatusNotifierWatcher is already running.
func (e *Engine) Start() error {
	if err := e.watcher.Listen(); err != nil {
		return err
	}

	if err := e.peerDeath.Listen(); err != nil {
		return fmt.Errorf("stray: start peer death watcher: %w", err)
	}

	go e.tracker.Run()
	go e.peerDeath.Run()
	go e.dispatcher.Run()

	slog.Info("engine started", "broadcast_capacity", e.config.BroadcastCapacity, "menu_recursion_depth", e.config.MenuRecursionDepth)
	return nil
}

// NewHost registers a new StatusNotifierHost under the engine's watcher
// and returns a Host subscribed to its broadcast stream. id should be
// stable and unique per caller (e.g. a process name).
func (e *Engine) NewHost(id string) (*Host, error) {
	host, err := newHost(e.conn, e.stream, id, e.commands)
	if err != nil {
		return nil, err
	}

	if call := e.watcher.RegisterStatusNotifierHost(host.BusName()); call != nil {
		host.Close()
		return nil, fmt.Errorf("stray: register host: %s", call.Error())
	}

	return host, nil
}

// Shutdown stops every background task, releases the watcher's bus name
// and closes the underlying connection. It is safe to call once.
func (e *Engine) Shutdown() error {
	e.peerDeath.Close()
	e.tracker.Close()
	e.dispatcher.Close()
	e.stream.close()

	err := e.watcher.Close()
	e.conn.Close()
	return err
}
