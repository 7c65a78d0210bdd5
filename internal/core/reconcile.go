package core

import "github.com/vovakirdan/roomchat/internal/proto"

// Reconcile applies one decoded server message to the store and returns the
// signal the presentation layer should receive. It keeps no state of its own.
func Reconcile(st *Store, msg proto.Inbound) Signal {
	switch m := msg.(type) {
	case proto.Query:
		// Error is terminal for the connection and is never left automatically.
		if st.Overlay().Mode != OverlayError {
			st.SetOverlay(Settings())
		}
		return SignalNamePrompt
	case proto.Notice:
		return SignalNotice
	case proto.JoinAck:
		// A join for a room we do not list leaves us without an active room.
		st.SetActiveRoom(m.Room)
		return SignalNone
	case proto.Event:
		reconcileEvent(st, m.Payload)
		return SignalNone
	default:
		// Decode only produces the variants above.
		return SignalNone
	}
}

func reconcileEvent(st *Store, payload proto.EventPayload) {
	switch p := payload.(type) {
	case proto.Listing:
		rooms := make([]Chatroom, 0, len(p.Rooms))
		for _, rc := range p.Rooms {
			rooms = append(rooms, Chatroom{Name: rc.Name, MemberCount: rc.Count})
		}
		st.ReplaceRooms(rooms)
	case proto.Update:
		st.UpdateMemberCount(p.Room, p.Count)
	case proto.ChatMessage:
		st.AppendMessage(Message{Kind: MessageChat, Author: p.Author, Body: p.Body})
	case proto.NewUser:
		st.AppendMessage(Message{Kind: MessageNewUser, Author: p.Author})
	case proto.Logoff:
		st.AppendMessage(Message{Kind: MessageLogoff, Author: p.Author})
	case proto.NewRoom:
		st.AddRoom(Chatroom{Name: p.Name})
	}
}
