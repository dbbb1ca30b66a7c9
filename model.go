package stray

import (
	"github.com/godbus/dbus/v5"
)

// StatusNotifierItemInterface and StatusNotifierItemPath are the interface
// name and default object path of org.kde.StatusNotifierItem.
const (
	StatusNotifierItemInterface = "org.kde.StatusNotifierItem"
	StatusNotifierItemPath      = "/StatusNotifierItem"
)

// Category describes what an item represents, per spec.md §3.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryApplicationStatus
	CategoryCommunications
	CategorySystemServices
	CategoryHardware
)

func (c Category) String() string {
	switch c {
	case CategoryApplicationStatus:
		return "ApplicationStatus"
	case CategoryCommunications:
		return "Communications"
	case CategorySystemServices:
		return "SystemServices"
	case CategoryHardware:
		return "Hardware"
	default:
		return "Unknown"
	}
}

func parseCategory(s string) Category {
	switch s {
	case "ApplicationStatus":
		return CategoryApplicationStatus
	case "Communications":
		return CategoryCommunications
	case "SystemServices":
		return CategorySystemServices
	case "Hardware":
		return CategoryHardware
	default:
		return CategoryUnknown
	}
}

// Status describes whether an item currently wants attention.
//
// Deviation note: the original Rust implementation this system was
// distilled from swaps these two values when parsing ("Passive" maps to
// Status::Active and vice versa). spec.md §9 flags this as almost
// certainly a bug and asks implementers to parse literally; this package
// does so. See DESIGN.md for the record of that decision.
type Status int

const (
	StatusUnknown Status = iota
	StatusPassive
	StatusActive
	StatusNeedsAttention
)

func (s Status) String() string {
	switch s {
	case StatusPassive:
		return "Passive"
	case StatusActive:
		return "Active"
	case StatusNeedsAttention:
		return "NeedsAttention"
	default:
		return "Unknown"
	}
}

func parseStatus(s string) Status {
	switch s {
	case "Passive":
		return StatusPassive
	case "Active":
		return StatusActive
	case "NeedsAttention":
		return StatusNeedsAttention
	default:
		return StatusUnknown
	}
}

// IconPixmap is a single ARGB32 icon bitmap, as carried by the IconPixmap,
// OverlayIconPixmap and AttentionIconPixmap properties.
type IconPixmap struct {
	Width  int32
	Height int32
	Pixels []byte
}

// decodeIconPixmaps decodes the array-of-(iiay) value of an *IconPixmap
// property. A malformed entry is skipped rather than aborting the whole
// slice, matching spec.md §4.C's "a single malformed child must not drop
// its siblings" tolerance (applied here to pixmap entries, not just menu
// children).
func decodeIconPixmaps(v any) []IconPixmap {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}

	out := make([]IconPixmap, 0, len(raw))
	for _, entry := range raw {
		pm, ok := decodeOneIconPixmap(entry)
		if ok {
			out = append(out, pm)
		}
	}
	return out
}

func decodeOneIconPixmap(entry any) (IconPixmap, bool) {
	fields, ok := entry.([]any)
	if !ok || len(fields) != 3 {
		return IconPixmap{}, false
	}

	width, ok := fields[0].(int32)
	if !ok {
		return IconPixmap{}, false
	}

	height, ok := fields[1].(int32)
	if !ok {
		return IconPixmap{}, false
	}

	pixels, ok := fields[2].([]byte)
	if !ok {
		return IconPixmap{}, false
	}

	return IconPixmap{Width: width, Height: height, Pixels: pixels}, true
}

// Tooltip is the textual part of the ToolTip property, a (icon-name,
// icon-pixmap, title, description) tuple. Only the title and description
// are kept; the icon fields are dropped.
type Tooltip struct {
	Title       string
	Description string
}

// StatusNotifierItem is the typed form of an org.kde.StatusNotifierItem
// property bag (spec.md §3).
type StatusNotifierItem struct {
	ID       string
	Category Category
	Status   Status
	WindowID uint32
	ItemIsMenu bool

	Title             string
	Tooltip           Tooltip
	IconName          string
	IconThemePath     string
	IconPixmap        []IconPixmap
	IconAccessibleDesc string

	AttentionIconName string
	AttentionMovieName string

	Menu string
}

// propBag is the map returned by org.freedesktop.DBus.Properties.GetAll,
// addressed by bare (unqualified) property name.
type propBag map[string]dbus.Variant

func newPropBag(props map[string]dbus.Variant) propBag {
	return propBag(props)
}

func (p propBag) string(key string) string {
	v, ok := p[key]
	if !ok {
		return ""
	}
	s, _ := v.Value().(string)
	return s
}

// stringOrNil returns "", false when the key is absent or the value is an
// empty string: spec.md §8 requires IconThemePath = "" to be treated as
// absent, and the same rule is applied uniformly to every optional string
// property.
func (p propBag) stringOrNil(key string) (string, bool) {
	s := p.string(key)
	if s == "" {
		return "", false
	}
	return s, true
}

func (p propBag) objectPath(key string) string {
	v, ok := p[key]
	if !ok {
		return ""
	}
	switch val := v.Value().(type) {
	case dbus.ObjectPath:
		return string(val)
	case string:
		return val
	default:
		return ""
	}
}

func (p propBag) boolOr(key string, fallback bool) bool {
	v, ok := p[key]
	if !ok {
		return fallback
	}
	b, ok := v.Value().(bool)
	if !ok {
		return fallback
	}
	return b
}

func (p propBag) uint32Or(key string, fallback uint32) uint32 {
	v, ok := p[key]
	if !ok {
		return fallback
	}
	switch n := v.Value().(type) {
	case uint32:
		return n
	case int32:
		return uint32(n)
	default:
		return fallback
	}
}

func (p propBag) tooltip() Tooltip {
	v, ok := p["ToolTip"]
	if !ok {
		return Tooltip{}
	}

	fields, ok := v.Value().([]any)
	if !ok || len(fields) < 4 {
		return Tooltip{}
	}

	title, _ := fields[2].(string)
	desc, _ := fields[3].(string)
	return Tooltip{Title: title, Description: desc}
}

// newStatusNotifierItem converts a Properties.GetAll result into a
// StatusNotifierItem. Per spec.md §3 an absent Id discards the record:
// the tracker must not publish an Update for this fetch cycle, but this
// is signaled via ErrMissingID rather than treated as a hard decode
// failure so callers can distinguish the two (§7, kind 2 vs the
// invariant-1 skip rule).
func newStatusNotifierItem(props map[string]dbus.Variant) (StatusNotifierItem, error) {
	bag := newPropBag(props)

	id, ok := bag.stringOrNil("Id")
	if !ok {
		return StatusNotifierItem{}, ErrMissingID
	}

	item := StatusNotifierItem{
		ID:         id,
		Category:   parseCategory(bag.string("Category")),
		Status:     parseStatus(bag.string("Status")),
		WindowID:   bag.uint32Or("WindowId", 0),
		ItemIsMenu: bag.boolOr("ItemIsMenu", false),

		Title:    bag.string("Title"),
		Tooltip:  bag.tooltip(),
		IconName: bag.string("IconName"),
		Menu:     bag.objectPath("Menu"),

		AttentionIconName:  bag.string("AttentionIconName"),
		AttentionMovieName: bag.string("AttentionMovieName"),
	}

	item.IconThemePath, _ = bag.stringOrNil("IconThemePath")
	item.IconAccessibleDesc, _ = bag.stringOrNil("IconAccessibleDesc")

	if v, ok := props["IconPixmap"]; ok {
		item.IconPixmap = decodeIconPixmaps(v.Value())
	}

	return item, nil
}
