package stray

import (
	"fmt"
	"strings"
)

// NotifierAddress is the pair of D-Bus coordinates needed to reach a
// StatusNotifierItem: the bus name that owns it and the object path it is
// exported at.
type NotifierAddress struct {
	// Destination is the D-Bus bus name, either a unique name (":1.522")
	// or a well-known name.
	Destination string
	// Path is the object path, always starting with "/".
	Path string
}

// ParseNotifierAddress splits a registration string as emitted by
// StatusNotifierItemRegistered (or read from RegisteredStatusNotifierItems)
// into its destination and object path.
//
// Two rules apply, in order (spec.md §3):
//
//  1. If the string contains a "/", split at the first one; the
//     destination is everything before it and the path is "/" followed by
//     everything after it.
//  2. Else, if the string starts with ":", the whole string is the
//     destination and the path defaults to "/StatusNotifierItem".
//
// Anything else is rejected with ErrInvalidAddress.
func ParseNotifierAddress(service string) (NotifierAddress, error) {
	if destination, rest, ok := strings.Cut(service, "/"); ok {
		return NotifierAddress{
			Destination: destination,
			Path:        "/" + rest,
		}, nil
	}

	if strings.HasPrefix(service, ":") {
		return NotifierAddress{
			Destination: service,
			Path:        StatusNotifierItemPath,
		}, nil
	}

	return NotifierAddress{}, fmt.Errorf("%w: %q", ErrInvalidAddress, service)
}

// String returns the canonical registration-string form, the same format
// ParseNotifierAddress accepts and the watcher's registry stores.
func (a NotifierAddress) String() string {
	return a.Destination + a.Path
}
