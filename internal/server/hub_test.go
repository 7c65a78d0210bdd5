package server

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/vovakirdan/roomchat/internal/proto"
)

func startHub(t *testing.T, seed ...string) *Hub {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)

	hub := NewHub(seed, nil)
	go hub.Run(ctx)
	return hub
}

// connect registers a named chatter and drains its greeting.
func connect(t *testing.T, hub *Hub, id, name string) *Chatter {
	t.Helper()

	c := NewChatter(id)
	if err := hub.RegisterClient(c); err != nil {
		t.Fatalf("register: %v", err)
	}
	mustEvent(t, c.Events, func(m proto.Inbound) bool { _, ok := m.(proto.Query); return ok })
	mustEvent(t, c.Events, isEvent[proto.Listing])
	submit(t, hub, c, proto.SetName{Name: name})
	return c
}

func submit(t *testing.T, hub *Hub, c *Chatter, cmd proto.Command) {
	t.Helper()
	if err := hub.Submit(context.Background(), c, cmd); err != nil {
		t.Fatalf("submit %T: %v", cmd, err)
	}
}

func TestHubGreetsWithQueryAndListing(t *testing.T) {
	hub := startHub(t, "lobby", "dev")

	c := NewChatter("a")
	if err := hub.RegisterClient(c); err != nil {
		t.Fatalf("register: %v", err)
	}

	if q := mustEvent(t, c.Events, func(m proto.Inbound) bool { _, ok := m.(proto.Query); return ok }); q != (proto.Query{Subject: "name"}) {
		t.Fatalf("unexpected query %#v", q)
	}
	ev := mustEvent(t, c.Events, isEvent[proto.Listing]).(proto.Event)
	want := proto.Listing{Rooms: []proto.RoomCount{{Name: "lobby"}, {Name: "dev"}}}
	if !reflect.DeepEqual(ev.Payload, want) {
		t.Fatalf("unexpected listing %#v", ev.Payload)
	}

	// Anything but a name is answered with another query.
	submit(t, hub, c, proto.JoinRoom{Name: "lobby"})
	mustEvent(t, c.Events, func(m proto.Inbound) bool { _, ok := m.(proto.Query); return ok })
}

func TestHubJoinBroadcastAndLeave(t *testing.T) {
	hub := startHub(t, "lobby")

	alice := connect(t, hub, "a", "alice")
	bob := connect(t, hub, "b", "bob")

	submit(t, hub, alice, proto.JoinRoom{Name: "lobby"})
	if ack := mustEvent(t, alice.Events, isJoinAck); ack != (proto.JoinAck{Room: "lobby"}) {
		t.Fatalf("unexpected ack %#v", ack)
	}

	submit(t, hub, bob, proto.JoinRoom{Name: "lobby"})
	mustEvent(t, bob.Events, isJoinAck)

	// Alice sees bob arrive, and everyone sees the new count.
	ev := mustEvent(t, alice.Events, isEvent[proto.NewUser]).(proto.Event)
	if ev.Payload != (proto.NewUser{Author: "bob"}) {
		t.Fatalf("unexpected newuser %#v", ev.Payload)
	}
	mustEvent(t, bob.Events, func(m proto.Inbound) bool {
		e, ok := m.(proto.Event)
		return ok && e.Payload == (proto.Update{Room: "lobby", Count: 2})
	})

	submit(t, hub, alice, proto.SendMessage{Body: "hi"})
	for _, c := range []*Chatter{alice, bob} {
		ev := mustEvent(t, c.Events, isEvent[proto.ChatMessage]).(proto.Event)
		if ev.Payload != (proto.ChatMessage{Author: "alice", Body: "hi"}) {
			t.Fatalf("unexpected message %#v", ev.Payload)
		}
	}

	hub.UnregisterClient(bob)
	ev = mustEvent(t, alice.Events, isEvent[proto.Logoff]).(proto.Event)
	if ev.Payload != (proto.Logoff{Author: "bob"}) {
		t.Fatalf("unexpected logoff %#v", ev.Payload)
	}
	mustEvent(t, alice.Events, func(m proto.Inbound) bool {
		e, ok := m.(proto.Event)
		return ok && e.Payload == (proto.Update{Room: "lobby", Count: 1})
	})

	rooms, err := hub.Rooms(context.Background())
	if err != nil {
		t.Fatalf("rooms: %v", err)
	}
	if !reflect.DeepEqual(rooms, []proto.RoomCount{{Name: "lobby", Count: 1}}) {
		t.Fatalf("unexpected rooms %+v", rooms)
	}
}

func TestHubJoinUnknownRoomProducesNotice(t *testing.T) {
	hub := startHub(t)
	alice := connect(t, hub, "a", "alice")

	submit(t, hub, alice, proto.JoinRoom{Name: "ghost"})

	n := mustEvent(t, alice.Events, func(m proto.Inbound) bool { _, ok := m.(proto.Notice); return ok })
	if n != (proto.Notice{Text: "Chatroom ghost not found."}) {
		t.Fatalf("unexpected notice %#v", n)
	}
}

func TestHubCreateRoom(t *testing.T) {
	hub := startHub(t, "lobby")
	alice := connect(t, hub, "a", "alice")
	bob := connect(t, hub, "b", "bob")

	submit(t, hub, alice, proto.CreateRoom{Name: "dev"})
	for _, c := range []*Chatter{alice, bob} {
		ev := mustEvent(t, c.Events, isEvent[proto.NewRoom]).(proto.Event)
		if ev.Payload != (proto.NewRoom{Name: "dev"}) {
			t.Fatalf("unexpected newchatroom %#v", ev.Payload)
		}
	}

	submit(t, hub, bob, proto.CreateRoom{Name: "lobby"})
	n := mustEvent(t, bob.Events, func(m proto.Inbound) bool { _, ok := m.(proto.Notice); return ok })
	if n != (proto.Notice{Text: "Chatroom lobby already exists."}) {
		t.Fatalf("unexpected notice %#v", n)
	}
}

func TestHubIgnoresMessagesOutsideRooms(t *testing.T) {
	hub := startHub(t, "lobby")
	alice := connect(t, hub, "a", "alice")

	submit(t, hub, alice, proto.SendMessage{Body: "anyone?"})
	submit(t, hub, alice, proto.JoinRoom{Name: "lobby"})

	// The first event after the ignored message is the join ack.
	select {
	case m := <-alice.Events:
		if _, ok := m.(proto.JoinAck); !ok {
			t.Fatalf("expected join ack first, got %#v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no event received")
	}
}

func TestHubClosesEventsOnUnregister(t *testing.T) {
	hub := startHub(t)
	c := connect(t, hub, "a", "alice")

	hub.UnregisterClient(c)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-c.Events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("events channel not closed")
		}
	}
}
