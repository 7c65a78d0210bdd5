package core

// MessageKind distinguishes chat bubbles from status lines.
type MessageKind int

const (
	// MessageChat is a regular chat message with a body.
	MessageChat MessageKind = iota
	// MessageNewUser is a status line for someone entering the room.
	MessageNewUser
	// MessageLogoff is a status line for someone leaving the room.
	MessageLogoff
)

func (k MessageKind) String() string {
	switch k {
	case MessageChat:
		return "message"
	case MessageNewUser:
		return "newuser"
	case MessageLogoff:
		return "logoff"
	default:
		return "unknown"
	}
}

// Message is one entry of the active room's log. Immutable once appended.
type Message struct {
	Kind   MessageKind
	Author string
	Body   string
}

// IsStatus reports whether the message renders as a status line.
func (m Message) IsStatus() bool {
	return m.Kind != MessageChat
}
