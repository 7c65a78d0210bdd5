package core

import "strings"

// Change is a bitmask of store fields touched by one mutation.
type Change uint8

const (
	ChangeName Change = 1 << iota
	ChangeRooms
	ChangeActiveRoom
	ChangeMessages
	ChangeOverlay
)

// Has reports whether all bits of other are set.
func (c Change) Has(other Change) bool {
	return c&other == other
}

func (c Change) String() string {
	names := []struct {
		bit  Change
		name string
	}{
		{ChangeName, "name"},
		{ChangeRooms, "rooms"},
		{ChangeActiveRoom, "active_room"},
		{ChangeMessages, "messages"},
		{ChangeOverlay, "overlay"},
	}
	parts := make([]string, 0, len(names))
	for _, n := range names {
		if c&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Signal asks the presentation layer for a non-blocking notification.
type Signal int

const (
	// SignalNone means nothing needs the user's attention.
	SignalNone Signal = iota
	// SignalNamePrompt asks the user to enter a display name.
	SignalNamePrompt
	// SignalNotice asks the user to acknowledge server text.
	SignalNotice
)
