package server

import "github.com/vovakirdan/roomchat/internal/proto"

type chatterState int

const (
	// stateInitializing accepts nothing but a name.
	stateInitializing chatterState = iota
	// stateSelecting has a name but no room.
	stateSelecting
	// stateChatting is subscribed to a room.
	stateChatting
)

func (s chatterState) String() string {
	switch s {
	case stateInitializing:
		return "initializing"
	case stateSelecting:
		return "selecting"
	case stateChatting:
		return "chatting"
	default:
		return "unknown"
	}
}

const eventBuffer = 32

// Chatter is one connected client as seen by the hub. Name, state and room
// are owned by the hub goroutine.
type Chatter struct {
	ID     string
	Events chan proto.Inbound

	name  string
	state chatterState
	room  *Room
}

// NewChatter constructs a chatter with an initialized event channel.
func NewChatter(id string) *Chatter {
	return &Chatter{
		ID:     id,
		Events: make(chan proto.Inbound, eventBuffer),
	}
}

// deliver queues msg for the chatter, dropping it if the consumer is slow.
func (c *Chatter) deliver(msg proto.Inbound) bool {
	select {
	case c.Events <- msg:
		return true
	default:
		return false
	}
}
