// Package stray implements the freedesktop.org StatusNotifierItem (SNI)
// protocol stack over D-Bus: a StatusNotifierWatcher service, one or more
// StatusNotifierHost subscribers, and the tracking logic that turns raw
// D-Bus property bags and dbusmenu layouts into a typed event stream.
//
// # Architecture
//
//   - [Watcher] owns the well-known name org.kde.StatusNotifierWatcher and
//     the registry of items/hosts. Exactly one should be present on a
//     session bus at a time.
//   - [Tracker] (started by [Engine]) opens a property and menu
//     subscription per registered item and republishes
//     [NotifierItemMessage] values whenever the item or its menu changes.
//   - [Host] is a subscriber handle: it registers itself with the watcher
//     and receives every message on its own lagging-aware channel.
//   - [Engine] wires the watcher, the tracker, the peer-death watcher, and
//     the command dispatcher together and owns their lifetimes.
//
// Package stray does not render icons or menus; it produces a typed
// stream of item updates and removals for a front-end to
// consume, and accepts menu-click commands to forward back to applications.
package stray
