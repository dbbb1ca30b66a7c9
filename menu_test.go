package stray

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/require"
)

func TestStripMnemonic(t *testing.T) {
	tests := []struct {
		name  string
		label string
		want  string
	}{
		{"no underscore", "Quit", "Quit"},
		{"lone underscore is a mnemonic marker", "_Quit", "Quit"},
		{"mnemonic marker in the middle", "E_xit", "Exit"},
		{"double underscore collapses to one literal underscore", "snake__case", "snake_case"},
		{"mixed mnemonic and escaped underscore", "_Snake__Case", "Snake_Case"},
		{"trailing lone underscore", "Quit_", "Quit"},
		{"only underscores", "__", "_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, stripMnemonic(tt.label))
		})
	}
}

func TestDecodeLayoutAppliesDefaults(t *testing.T) {
	node := []any{
		int32(0),
		map[string]dbus.Variant{},
		[]dbus.Variant{},
	}

	item, err := decodeLayout(node)
	require.NoError(t, err)
	require.True(t, item.Enabled)
	require.True(t, item.Visible)
	require.Equal(t, MenuTypeStandard, item.MenuType)
	require.Equal(t, ToggleTypeCannotBeToggled, item.ToggleType)
	require.Equal(t, ToggleStateIndeterminate, item.ToggleState)
	require.Equal(t, DispositionNormal, item.Disposition)
}

func TestDecodeLayoutRecursesIntoChildren(t *testing.T) {
	child := []any{
		int32(2),
		map[string]dbus.Variant{"label": dbus.MakeVariant("_Open")},
		[]dbus.Variant{},
	}
	root := []any{
		int32(0),
		map[string]dbus.Variant{"label": dbus.MakeVariant("Root")},
		[]dbus.Variant{dbus.MakeVariant(child)},
	}

	item, err := decodeLayout(root)
	require.NoError(t, err)
	require.Equal(t, "Root", item.Label)
	require.Len(t, item.Submenu, 1)
	require.Equal(t, "Open", item.Submenu[0].Label)
	require.EqualValues(t, 2, item.Submenu[0].ID)
}

func TestDecodeLayoutSkipsMalformedChildWithoutDroppingSiblings(t *testing.T) {
	goodA := []any{int32(1), map[string]dbus.Variant{"label": dbus.MakeVariant("A")}, []dbus.Variant{}}
	malformed := []any{int32(2)} // wrong arity
	goodB := []any{int32(3), map[string]dbus.Variant{"label": dbus.MakeVariant("B")}, []dbus.Variant{}}

	root := []any{
		int32(0),
		map[string]dbus.Variant{},
		[]dbus.Variant{
			dbus.MakeVariant(goodA),
			dbus.MakeVariant(malformed),
			dbus.MakeVariant(goodB),
		},
	}

	item, err := decodeLayout(root)
	require.NoError(t, err)
	require.Len(t, item.Submenu, 2)
	require.Equal(t, "A", item.Submenu[0].Label)
	require.Equal(t, "B", item.Submenu[1].Label)
}

func TestDecodeLayoutRejectsWrongShape(t *testing.T) {
	_, err := decodeLayout([]any{int32(0), map[string]dbus.Variant{}})
	require.ErrorIs(t, err, ErrDecodeFailed)
}

func TestApplyMenuPropertiesToggleState(t *testing.T) {
	item := defaultMenuItem()
	applyMenuProperties(&item, map[string]dbus.Variant{
		"toggle-type":  dbus.MakeVariant("checkmark"),
		"toggle-state": dbus.MakeVariant(int32(1)),
	})
	require.Equal(t, ToggleTypeCheckmark, item.ToggleType)
	require.Equal(t, ToggleStateOn, item.ToggleState)
}

func TestNewTrayMenu(t *testing.T) {
	root := MenuItem{ID: 0, Submenu: []MenuItem{{ID: 1, Label: "A"}}}
	menu := newTrayMenu(0, root)
	require.EqualValues(t, 0, menu.ID)
	require.Len(t, menu.Submenus, 1)
	require.Equal(t, "A", menu.Submenus[0].Label)
}

func TestDecodeShortcutFromVariantSlices(t *testing.T) {
	raw := []any{
		[]any{"Control", "S"},
		[]any{"Control", "Shift", "P"},
	}

	got := decodeShortcut(raw)
	require.Equal(t, [][]string{{"Control", "S"}, {"Control", "Shift", "P"}}, got)
}

func TestDecodeShortcutSkipsMalformedChordWithoutDroppingOthers(t *testing.T) {
	raw := []any{
		[]any{"Control", "S"},
		"not-a-chord",
	}

	got := decodeShortcut(raw)
	require.Equal(t, [][]string{{"Control", "S"}}, got)
}

func TestDecodeShortcutNonArrayReturnsNil(t *testing.T) {
	require.Nil(t, decodeShortcut(42))
}

func TestApplyMenuPropertiesDecodesShortcut(t *testing.T) {
	item := defaultMenuItem()
	applyMenuProperties(&item, map[string]dbus.Variant{
		"shortcut": dbus.MakeVariant([]any{[]any{"Control", "Q"}}),
	})
	require.Equal(t, [][]string{{"Control", "Q"}}, item.Shortcut)
}
