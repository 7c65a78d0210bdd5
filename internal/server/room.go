package server

import "github.com/vovakirdan/roomchat/internal/proto"

// Room groups chatters subscribed to the same chatroom.
type Room struct {
	Name    string
	members map[*Chatter]struct{}
}

// NewRoom constructs a room with no members.
func NewRoom(name string) *Room {
	return &Room{
		Name:    name,
		members: make(map[*Chatter]struct{}),
	}
}

// AddMember inserts a chatter into the room. Returns true if newly added.
func (r *Room) AddMember(c *Chatter) bool {
	if _, exists := r.members[c]; exists {
		return false
	}
	r.members[c] = struct{}{}
	return true
}

// RemoveMember deletes a chatter from the room. Returns true if removed.
func (r *Room) RemoveMember(c *Chatter) bool {
	if _, exists := r.members[c]; !exists {
		return false
	}
	delete(r.members, c)
	return true
}

// Broadcast sends an event to every member of the room.
func (r *Room) Broadcast(msg proto.Inbound) {
	for c := range r.members {
		c.deliver(msg)
	}
}

// Count returns the number of members.
func (r *Room) Count() int {
	return len(r.members)
}
