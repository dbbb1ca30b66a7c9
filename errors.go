package stray

import "errors"

// Sentinel errors a caller is expected to branch on with errors.Is.
//
// Transport failures that are not expected to drive caller control flow
// (a one-off D-Bus call failing) are instead returned as plain
// fmt.Errorf-wrapped errors from the function that made the call, the way
// the teacher package and every other example in the pack do it.
var (
	// ErrInvalidAddress is returned when a registration string cannot be
	// split into a destination and an object path (spec.md §3, rule
	// failure; §8 boundary: no slash and no colon).
	ErrInvalidAddress = errors.New("stray: invalid notifier address")

	// ErrDecodeFailed is returned when a D-Bus variant tuple could not be
	// converted into a typed model value.
	ErrDecodeFailed = errors.New("stray: failed to decode value")

	// ErrMissingID is returned when an SNI property bag has no "Id" key.
	// Per spec.md §3 this is not surfaced to subscribers as an Update
	// failure; it is returned here so the tracker can distinguish "skip
	// silently" from other decode failures it still wants to log.
	ErrMissingID = errors.New("stray: status notifier item has no id")

	// ErrWatcherNameTaken is returned by Watcher.Listen when another
	// watcher already owns org.kde.StatusNotifierWatcher. Per spec.md §7
	// this is the one failure fatal to the whole engine.
	ErrWatcherNameTaken = errors.New("stray: org.kde.StatusNotifierWatcher already owned")

	// ErrClosed is returned by Watcher.Listen when called after Close.
	ErrClosed = errors.New("stray: already closed")

	// ErrNoSubscribers is returned (informationally, never fatal) when a
	// broadcast send finds no active subscriber.
	ErrNoSubscribers = errors.New("stray: no active subscribers")

	// ErrLagged is returned from Host.Recv when the host's channel
	// overflowed and one or more messages were dropped before it could
	// read them.
	ErrLagged = errors.New("stray: subscriber lagged, messages were dropped")

	// ErrHostClosed is returned from Host.Recv once the host has been
	// closed and its backlog drained.
	ErrHostClosed = errors.New("stray: host closed")
)
