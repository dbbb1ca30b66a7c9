package stray

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/require"
)

func TestDepartedNameIgnoresStillOwnedName(t *testing.T) {
	name, ok := departedName(&dbus.Signal{Body: []any{":1.5", ":1.5", ":1.6"}})
	require.False(t, ok)
	require.Empty(t, name)
}

func TestDepartedNameOnOwnerLoss(t *testing.T) {
	name, ok := departedName(&dbus.Signal{Body: []any{":1.5", ":1.5", ""}})
	require.True(t, ok)
	require.Equal(t, ":1.5", name)
}

func TestDepartedNameRejectsMalformedBody(t *testing.T) {
	_, ok := departedName(&dbus.Signal{Body: []any{":1.5"}})
	require.False(t, ok)
}

func TestHostBusNameFormat(t *testing.T) {
	name := hostBusName("myhost")
	require.Contains(t, name, StatusNotifierHostInterface+"-")
	require.Contains(t, name, "-myhost")
}
