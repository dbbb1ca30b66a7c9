package stray

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/require"
)

func TestParseStatusIsLiteral(t *testing.T) {
	// Deviation note: the original implementation this package's protocol
	// was distilled from swaps Passive and Active when parsing. This
	// package parses literally; see DESIGN.md.
	require.Equal(t, StatusPassive, parseStatus("Passive"))
	require.Equal(t, StatusActive, parseStatus("Active"))
	require.Equal(t, StatusNeedsAttention, parseStatus("NeedsAttention"))
	require.Equal(t, StatusUnknown, parseStatus("garbage"))
}

func TestParseCategory(t *testing.T) {
	require.Equal(t, CategoryApplicationStatus, parseCategory("ApplicationStatus"))
	require.Equal(t, CategoryCommunications, parseCategory("Communications"))
	require.Equal(t, CategorySystemServices, parseCategory("SystemServices"))
	require.Equal(t, CategoryHardware, parseCategory("Hardware"))
	require.Equal(t, CategoryUnknown, parseCategory(""))
}

func TestNewStatusNotifierItemRequiresID(t *testing.T) {
	_, err := newStatusNotifierItem(map[string]dbus.Variant{
		"Title": dbus.MakeVariant("no id here"),
	})
	require.ErrorIs(t, err, ErrMissingID)
}

func TestNewStatusNotifierItemBasicFields(t *testing.T) {
	props := map[string]dbus.Variant{
		"Id":         dbus.MakeVariant("spotify"),
		"Category":   dbus.MakeVariant("ApplicationStatus"),
		"Status":     dbus.MakeVariant("Active"),
		"Title":      dbus.MakeVariant("Spotify"),
		"IconName":   dbus.MakeVariant("spotify-client"),
		"WindowId":   dbus.MakeVariant(uint32(7)),
		"ItemIsMenu": dbus.MakeVariant(true),
		"Menu":       dbus.MakeVariant(dbus.ObjectPath("/com/canonical/dbusmenu")),
	}

	item, err := newStatusNotifierItem(props)
	require.NoError(t, err)
	require.Equal(t, "spotify", item.ID)
	require.Equal(t, CategoryApplicationStatus, item.Category)
	require.Equal(t, StatusActive, item.Status)
	require.Equal(t, "Spotify", item.Title)
	require.Equal(t, "spotify-client", item.IconName)
	require.EqualValues(t, 7, item.WindowID)
	require.True(t, item.ItemIsMenu)
	require.Equal(t, "/com/canonical/dbusmenu", item.Menu)
}

func TestIconThemePathEmptyStringTreatedAsAbsent(t *testing.T) {
	props := map[string]dbus.Variant{
		"Id":            dbus.MakeVariant("x"),
		"IconThemePath": dbus.MakeVariant(""),
	}

	item, err := newStatusNotifierItem(props)
	require.NoError(t, err)
	require.Empty(t, item.IconThemePath)
}

func TestDecodeIconPixmapsSkipsMalformedEntriesWithoutDroppingSiblings(t *testing.T) {
	good := []any{int32(16), int32(16), []byte{1, 2, 3, 4}}
	malformed := []any{int32(16)} // wrong arity

	out := decodeIconPixmaps([]any{good, malformed, good})
	require.Len(t, out, 2)
	require.EqualValues(t, 16, out[0].Width)
	require.EqualValues(t, 16, out[0].Height)
	require.Equal(t, []byte{1, 2, 3, 4}, out[0].Pixels)
}

func TestDecodeIconPixmapsNonArrayReturnsNil(t *testing.T) {
	require.Nil(t, decodeIconPixmaps("not an array"))
}

func TestTooltipExtractsTitleAndDescription(t *testing.T) {
	props := map[string]dbus.Variant{
		"Id": dbus.MakeVariant("x"),
		"ToolTip": dbus.MakeVariant([]any{
			"icon-name", []any{}, "Title Text", "Description text",
		}),
	}

	item, err := newStatusNotifierItem(props)
	require.NoError(t, err)
	require.Equal(t, "Title Text", item.Tooltip.Title)
	require.Equal(t, "Description text", item.Tooltip.Description)
}
