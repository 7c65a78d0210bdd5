package core

import "fmt"

// OverlayMode is the UI mode governing which user actions are allowed.
type OverlayMode int

const (
	// OverlayOff is the normal chat view.
	OverlayOff OverlayMode = iota
	// OverlaySettings asks the user for a display name.
	OverlaySettings
	// OverlayError is terminal for the current connection.
	OverlayError
	// OverlayWaiting is shown before the connection opens.
	OverlayWaiting
)

func (m OverlayMode) String() string {
	switch m {
	case OverlayOff:
		return "off"
	case OverlaySettings:
		return "settings"
	case OverlayError:
		return "error"
	case OverlayWaiting:
		return "waiting"
	default:
		return "unknown"
	}
}

// Overlay is the current overlay mode plus the text shown with it.
// Message is only meaningful for OverlayError and OverlayWaiting.
type Overlay struct {
	Mode    OverlayMode
	Message string
}

// Off returns the no-overlay status.
func Off() Overlay { return Overlay{Mode: OverlayOff} }

// Settings returns the identity-entry status.
func Settings() Overlay { return Overlay{Mode: OverlaySettings} }

// Waiting returns a transient status with a message.
func Waiting(msg string) Overlay { return Overlay{Mode: OverlayWaiting, Message: msg} }

// Failed returns an error status with a message.
func Failed(msg string) Overlay { return Overlay{Mode: OverlayError, Message: msg} }

func (o Overlay) String() string {
	if o.Message == "" {
		return o.Mode.String()
	}
	return fmt.Sprintf("%s(%s)", o.Mode, o.Message)
}
