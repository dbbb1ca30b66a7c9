package stray

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/require"
)

func TestItemIdentifierFromObjectPath(t *testing.T) {
	got := itemIdentifier("/org/ayatana/NotificationItem/app", dbus.Sender(":1.42"))
	require.Equal(t, ":1.42/org/ayatana/NotificationItem/app", got)
}

func TestItemIdentifierFromUniqueName(t *testing.T) {
	got := itemIdentifier(":1.42", dbus.Sender(":1.42"))
	require.Equal(t, ":1.42"+StatusNotifierItemPath, got)
}

func TestFindItemMatching(t *testing.T) {
	items := []string{
		":1.10/StatusNotifierItem",
		":1.20/org/foo/Item",
	}

	require.Equal(t, 0, findItemMatching(items, ":1.10"))
	require.Equal(t, 1, findItemMatching(items, ":1.20/org/foo/Item"))
	require.Equal(t, -1, findItemMatching(items, ":1.99"))
}

func TestFindItemMatchingPrefersFirstMatch(t *testing.T) {
	items := []string{":1.1/a", ":1.1/b"}
	require.Equal(t, 0, findItemMatching(items, ":1.1"))
}
