package stray

import (
	"fmt"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
)

// MenuInterface is the com.canonical.dbusmenu interface name.
const MenuInterface = "com.canonical.dbusmenu"

// MenuType distinguishes a clickable entry from a separator.
type MenuType int

const (
	MenuTypeStandard MenuType = iota
	MenuTypeSeparator
)

func parseMenuType(s string) MenuType {
	if s == "separator" {
		return MenuTypeSeparator
	}
	return MenuTypeStandard
}

// ToggleType describes whether and how an item can be toggled.
type ToggleType int

const (
	ToggleTypeCannotBeToggled ToggleType = iota
	ToggleTypeCheckmark
	ToggleTypeRadio
)

func parseToggleType(s string) ToggleType {
	switch s {
	case "checkmark":
		return ToggleTypeCheckmark
	case "radio":
		return ToggleTypeRadio
	default:
		return ToggleTypeCannotBeToggled
	}
}

// ToggleState describes the current state of a togglable item.
type ToggleState int

const (
	ToggleStateIndeterminate ToggleState = iota
	ToggleStateOn
	ToggleStateOff
)

func toggleStateFromInt(n int32) ToggleState {
	switch n {
	case 1:
		return ToggleStateOn
	case 0:
		return ToggleStateOff
	default:
		return ToggleStateIndeterminate
	}
}

// Disposition hints at how urgently an item's information should be
// presented.
type Disposition int

const (
	DispositionNormal Disposition = iota
	DispositionInformative
	DispositionWarning
	DispositionAlert
)

func parseDisposition(s string) Disposition {
	switch s {
	case "informative":
		return DispositionInformative
	case "warning":
		return DispositionWarning
	case "alert":
		return DispositionAlert
	default:
		return DispositionNormal
	}
}

// MenuItem is a single node in a dbusmenu layout tree.
//
// Defaults (spec.md §3): Enabled and Visible default to true, MenuType
// defaults to Standard, ToggleType to CannotBeToggled, ToggleState to
// Indeterminate, Disposition to Normal.
type MenuItem struct {
	ID              int32
	Label           string
	Enabled         bool
	Visible         bool
	IconName        string
	MenuType        MenuType
	ToggleType      ToggleType
	ToggleState     ToggleState
	Disposition     Disposition
	ChildrenDisplay string
	// Shortcut holds the dbusmenu "shortcut" property: an array of key
	// chords, each chord itself an array of key names (e.g.
	// [["Control","S"]]). Absence or a malformed value leaves this nil
	// rather than failing the whole node.
	Shortcut [][]string
	Submenu  []MenuItem
}

func defaultMenuItem() MenuItem {
	return MenuItem{
		Enabled:     true,
		Visible:     true,
		MenuType:    MenuTypeStandard,
		ToggleType:  ToggleTypeCannotBeToggled,
		ToggleState: ToggleStateIndeterminate,
		Disposition: DispositionNormal,
	}
}

// stripMnemonic removes standalone underscore mnemonic markers from a
// dbusmenu label, per spec.md §3/§4.C and the Open Question resolved in
// DESIGN.md: a lone "_" is a mnemonic marker and is removed, while "__" is
// the escaped form of a literal underscore and collapses to a single "_".
func stripMnemonic(label string) string {
	var b strings.Builder
	b.Grow(len(label))

	runes := []rune(label)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '_' {
			b.WriteRune(runes[i])
			continue
		}

		if i+1 < len(runes) && runes[i+1] == '_' {
			b.WriteRune('_')
			i++
			continue
		}
		// Lone underscore: mnemonic marker, drop it.
	}

	return b.String()
}

// TrayMenu is the decoded root of a dbusmenu layout (spec.md §3).
type TrayMenu struct {
	ID       uint32
	Submenus []MenuItem

	// Version and Status come from com.canonical.dbusmenu's own
	// top-level properties (Properties.GetAll on the menu object, not
	// part of the GetLayout reply), fetched alongside the layout on every
	// menu fetch. Status is typically "normal" or
	// "notice"; Version is the protocol revision the application speaks.
	// Both are left at their zero value if the fetch fails -- a menu with
	// no Version/Status is still usable, so this never blocks publishing
	// a layout that was otherwise decoded successfully.
	Version uint32
	Status  string
}

// decodeLayout converts one GetLayout node -- (i, a{sv}, av), already
// unwrapped by godbus into []any{int32, map[string]dbus.Variant,
// []dbus.Variant} -- into a MenuItem tree. A malformed child is skipped
// without dropping its siblings (spec.md §4.C).
func decodeLayout(node any) (MenuItem, error) {
	fields, ok := node.([]any)
	if !ok || len(fields) != 3 {
		return MenuItem{}, fmt.Errorf("%w: layout node has unexpected shape", ErrDecodeFailed)
	}

	item := defaultMenuItem()

	if id, ok := fields[0].(int32); ok {
		item.ID = id
	}

	if props, ok := fields[1].(map[string]dbus.Variant); ok {
		applyMenuProperties(&item, props)
	}

	if children, ok := fields[2].([]dbus.Variant); ok {
		item.Submenu = decodeChildren(children)
	}

	return item, nil
}

func decodeChildren(children []dbus.Variant) []MenuItem {
	out := make([]MenuItem, 0, len(children))
	for _, child := range children {
		childItem, err := decodeLayout(child.Value())
		if err != nil {
			continue
		}
		out = append(out, childItem)
	}
	return out
}

func applyMenuProperties(item *MenuItem, props map[string]dbus.Variant) {
	bag := propBag(props)

	item.Label = stripMnemonic(bag.string("label"))
	item.Enabled = bag.boolOr("enabled", true)
	item.Visible = bag.boolOr("visible", true)
	item.IconName = bag.string("icon-name")
	item.ChildrenDisplay = bag.string("children-display")
	item.MenuType = parseMenuType(bag.string("type"))
	item.ToggleType = parseToggleType(bag.string("toggle-type"))
	item.Disposition = parseDisposition(bag.string("disposition"))

	if v, ok := props["toggle-state"]; ok {
		if n, ok := v.Value().(int32); ok {
			item.ToggleState = toggleStateFromInt(n)
		}
	}

	if v, ok := props["shortcut"]; ok {
		item.Shortcut = decodeShortcut(v.Value())
	}
}

// decodeShortcut converts the dbusmenu "shortcut" property (aas, an array
// of arrays of strings) into [][]string. A malformed chord is skipped
// without dropping the others, matching the layout decoder's general
// tolerance for partial data (spec.md §4.C).
func decodeShortcut(v any) [][]string {
	chords, ok := v.([][]string)
	if ok {
		return chords
	}

	raw, ok := v.([]any)
	if !ok {
		return nil
	}

	out := make([][]string, 0, len(raw))
	for _, chord := range raw {
		keys, ok := chord.([]string)
		if !ok {
			if asAny, ok := chord.([]any); ok {
				converted := make([]string, 0, len(asAny))
				for _, k := range asAny {
					s, ok := k.(string)
					if !ok {
						continue
					}
					converted = append(converted, s)
				}
				keys = converted
			} else {
				continue
			}
		}
		out = append(out, keys)
	}
	return out
}

func newTrayMenu(id uint32, root MenuItem) TrayMenu {
	return TrayMenu{ID: id, Submenus: root.Submenu}
}

// Menu is a typed client for com.canonical.dbusmenu at a given item
// address and object path.
type Menu struct {
	object dbus.BusObject
}

// NewMenu returns a Menu bound to the given destination and object path.
// No call is made; use GetLayout to fetch the tree.
func NewMenu(conn *dbus.Conn, destination, path string) *Menu {
	return &Menu{object: conn.Object(destination, dbus.ObjectPath(path))}
}

// GetLayout calls com.canonical.dbusmenu.GetLayout and decodes the reply.
// The tracker calls this with its configured recursion depth
// (maxMenuRecursionDepth unless Config.MenuRecursionDepth overrides it);
// deeper menus are silently truncated (spec.md §4.E).
func (m *Menu) GetLayout(parentID, recursionDepth int32, propertyNames []string) (revision uint32, menu TrayMenu, err error) {
	call := m.object.Call(MenuInterface+".GetLayout", 0, parentID, recursionDepth, propertyNames)
	if call.Err != nil {
		return 0, TrayMenu{}, call.Err
	}

	if len(call.Body) != 2 {
		return 0, TrayMenu{}, fmt.Errorf("%w: GetLayout reply has unexpected shape", ErrDecodeFailed)
	}

	revision, ok := call.Body[0].(uint32)
	if !ok {
		return 0, TrayMenu{}, fmt.Errorf("%w: GetLayout revision has unexpected type", ErrDecodeFailed)
	}

	root, err := decodeLayout(call.Body[1])
	if err != nil {
		return revision, TrayMenu{}, err
	}

	return revision, newTrayMenu(uint32(root.ID), root), nil
}

// Properties fetches com.canonical.dbusmenu's own Version and Status
// properties via org.freedesktop.DBus.Properties.GetAll. Callers that only
// care about the layout tree can ignore this; the tracker calls it once
// per fetch cycle to fill in TrayMenu.Version/TrayMenu.Status.
func (m *Menu) Properties() (version uint32, status string, err error) {
	var props map[string]dbus.Variant
	call := m.object.Call("org.freedesktop.DBus.Properties.GetAll", 0, MenuInterface)
	if call.Err != nil {
		return 0, "", call.Err
	}
	if err := call.Store(&props); err != nil {
		return 0, "", fmt.Errorf("%w: dbusmenu properties reply has unexpected shape", ErrDecodeFailed)
	}

	bag := propBag(props)
	return bag.uint32Or("Version", 0), bag.string("Status"), nil
}

// Event calls com.canonical.dbusmenu.Event, telling the application that
// something happened to the menu item with the given id.
func (m *Menu) Event(id int32, eventID string, data any, timestamp uint32) error {
	return m.object.Call(MenuInterface+".Event", 0, id, eventID, dbus.MakeVariant(data), timestamp).Err
}

// Clicked is a convenience wrapper around Event for the "clicked" event,
// matching the payload the command dispatcher sends (spec.md §4.H).
func (m *Menu) Clicked(id int32) error {
	return m.Event(id, "clicked", int32(32), uint32(time.Now().UnixMicro()%1_000_000))
}
