// Package server implements the chatroom service the client talks to: a hub
// goroutine owning every room and connected chatter.
package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat/internal/proto"
)

// ErrHubStopped is returned when the hub is no longer running.
var ErrHubStopped = errors.New("hub stopped")

type chatterCommand struct {
	chatter *Chatter
	cmd     proto.Command
}

// Hub coordinates chatters and rooms. All state is owned by Run.
type Hub struct {
	register   chan *Chatter
	unregister chan *Chatter
	commands   chan chatterCommand
	listings   chan chan []proto.RoomCount
	done       chan struct{}

	rooms    map[string]*Room
	order    []*Room
	chatters map[*Chatter]struct{}
	log      *zerolog.Logger
}

// NewHub creates a hub with the given rooms already open.
func NewHub(seedRooms []string, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	h := &Hub{
		register:   make(chan *Chatter),
		unregister: make(chan *Chatter),
		commands:   make(chan chatterCommand, 64),
		listings:   make(chan chan []proto.RoomCount),
		done:       make(chan struct{}),
		rooms:      make(map[string]*Room),
		chatters:   make(map[*Chatter]struct{}),
		log:        logger,
	}
	for _, name := range seedRooms {
		if name == "" {
			continue
		}
		h.createRoom(name)
	}
	return h
}

// Run processes hub traffic until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.chatters {
				delete(h.chatters, c)
				close(c.Events)
			}
			return
		case c := <-h.register:
			h.handleRegister(c)
		case c := <-h.unregister:
			h.handleUnregister(c)
		case cc := <-h.commands:
			if _, ok := h.chatters[cc.chatter]; !ok {
				continue
			}
			h.handleCommand(cc.chatter, cc.cmd)
		case reply := <-h.listings:
			reply <- h.listing()
		}
	}
}

// RegisterClient adds a chatter; it is asked for a name and sent the listing.
func (h *Hub) RegisterClient(c *Chatter) error {
	select {
	case h.register <- c:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

// UnregisterClient removes a chatter and closes its event channel.
func (h *Hub) UnregisterClient(c *Chatter) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Submit queues a command issued by c.
func (h *Hub) Submit(ctx context.Context, c *Chatter, cmd proto.Command) error {
	select {
	case h.commands <- chatterCommand{chatter: c, cmd: cmd}:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Rooms returns every room with its member count in creation order.
func (h *Hub) Rooms(ctx context.Context) ([]proto.RoomCount, error) {
	reply := make(chan []proto.RoomCount, 1)
	select {
	case h.listings <- reply:
	case <-h.done:
		return nil, ErrHubStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case rooms := <-reply:
		return rooms, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) handleRegister(c *Chatter) {
	h.chatters[c] = struct{}{}
	c.state = stateInitializing
	h.log.Info().Str("chatter_id", c.ID).Msg("chatter connected")

	c.deliver(proto.Query{Subject: proto.QuerySubjectName})
	c.deliver(proto.Event{Payload: proto.Listing{Rooms: h.listing()}})
}

func (h *Hub) handleUnregister(c *Chatter) {
	if _, ok := h.chatters[c]; !ok {
		return
	}
	h.log.Info().Str("chatter_id", c.ID).Str("name", c.name).Msg("chatter disconnected")
	h.drop(c)
}

func (h *Hub) drop(c *Chatter) {
	if prev := h.leaveRoom(c); prev != nil {
		h.broadcastUpdate(prev)
	}
	delete(h.chatters, c)
	close(c.Events)
}

func (h *Hub) handleCommand(c *Chatter, cmd proto.Command) {
	if c.state == stateInitializing {
		if _, ok := cmd.(proto.SetName); !ok {
			c.deliver(proto.Query{Subject: proto.QuerySubjectName})
			return
		}
	}

	switch m := cmd.(type) {
	case proto.SetName:
		h.handleSetName(c, m.Name)
	case proto.JoinRoom:
		h.handleJoin(c, m.Name)
	case proto.CreateRoom:
		h.handleCreate(c, m.Name)
	case proto.SendMessage:
		if c.state != stateChatting {
			h.log.Debug().Str("chatter_id", c.ID).Str("state", c.state.String()).Msg("message outside a room ignored")
			return
		}
		c.room.Broadcast(proto.Event{Payload: proto.ChatMessage{Author: c.name, Body: m.Body}})
	}
}

func (h *Hub) handleSetName(c *Chatter, name string) {
	if name == "" {
		c.deliver(proto.Query{Subject: proto.QuerySubjectName})
		return
	}
	c.name = name
	if c.state == stateInitializing {
		c.state = stateSelecting
	}
	h.log.Info().Str("chatter_id", c.ID).Str("name", name).Msg("chatter named")
}

func (h *Hub) handleJoin(c *Chatter, name string) {
	target, ok := h.rooms[name]
	if !ok {
		c.deliver(proto.Notice{Text: fmt.Sprintf("Chatroom %s not found.", name)})
		return
	}
	if c.room == target {
		c.deliver(proto.JoinAck{Room: target.Name})
		return
	}

	prev := h.leaveRoom(c)

	target.Broadcast(proto.Event{Payload: proto.NewUser{Author: c.name}})
	target.AddMember(c)
	c.room = target
	c.state = stateChatting
	c.deliver(proto.JoinAck{Room: target.Name})

	if prev != nil {
		h.broadcastUpdate(prev)
	}
	h.broadcastUpdate(target)
	h.log.Debug().Str("chatter_id", c.ID).Str("room", target.Name).Msg("joined room")
}

func (h *Hub) handleCreate(c *Chatter, name string) {
	if name == "" {
		c.deliver(proto.Notice{Text: "You must enter a name for the chatroom."})
		return
	}
	if _, exists := h.rooms[name]; exists {
		c.deliver(proto.Notice{Text: fmt.Sprintf("Chatroom %s already exists.", name)})
		return
	}
	h.createRoom(name)
	h.broadcastAll(proto.Event{Payload: proto.NewRoom{Name: name}})
	h.log.Info().Str("chatter_id", c.ID).Str("room", name).Msg("room created")
}

func (h *Hub) createRoom(name string) *Room {
	room := NewRoom(name)
	h.rooms[name] = room
	h.order = append(h.order, room)
	return room
}

// leaveRoom removes c from its room, announcing it to the remaining members.
// It returns the room that was left, if any.
func (h *Hub) leaveRoom(c *Chatter) *Room {
	prev := c.room
	if prev == nil {
		return nil
	}
	prev.RemoveMember(c)
	prev.Broadcast(proto.Event{Payload: proto.Logoff{Author: c.name}})
	c.room = nil
	if c.state == stateChatting {
		c.state = stateSelecting
	}
	return prev
}

func (h *Hub) broadcastUpdate(room *Room) {
	h.broadcastAll(proto.Event{Payload: proto.Update{Room: room.Name, Count: room.Count()}})
}

func (h *Hub) broadcastAll(msg proto.Inbound) {
	for c := range h.chatters {
		if !c.deliver(msg) {
			h.log.Warn().Str("chatter_id", c.ID).Msg("dropping event for slow chatter")
		}
	}
}

func (h *Hub) listing() []proto.RoomCount {
	rooms := make([]proto.RoomCount, 0, len(h.order))
	for _, r := range h.order {
		rooms = append(rooms, proto.RoomCount{Name: r.Name, Count: r.Count()})
	}
	return rooms
}
