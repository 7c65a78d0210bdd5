package proto

import (
	"encoding/json"
	"fmt"
)

// DecodeError reports a frame that is not a well-formed protocol message.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return "decode frame: " + e.Reason + ": " + e.Err.Error()
	}
	return "decode frame: " + e.Reason
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// UnknownEventError reports an event whose sub-type this client does not know.
// Callers treat it as a no-op rather than a failure.
type UnknownEventError struct {
	Type string
}

func (e *UnknownEventError) Error() string {
	return fmt.Sprintf("unknown event type %q", e.Type)
}

func decodeErr(reason string, err error) error {
	return &DecodeError{Reason: reason, Err: err}
}

type nameFrame struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type messageFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type chatroomFrame struct {
	Type     string `json:"type"`
	Chatroom string `json:"chatroom"`
}

type queryFrame struct {
	Type  string `json:"type"`
	Query string `json:"query"`
}

type noticeFrame struct {
	Type   string `json:"type"`
	Notice string `json:"notice"`
}

type eventFrame struct {
	Type  string `json:"type"`
	Event any    `json:"event"`
}

type listingEvent struct {
	Type      string  `json:"type"`
	Chatrooms [][]any `json:"chatrooms"`
}

type updateEvent struct {
	Type string `json:"type"`
	Data []any  `json:"data"`
}

type messageEvent struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

type nameEvent struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// Encode serializes a client command into a text frame.
func Encode(cmd Command) ([]byte, error) {
	var frame any
	switch c := cmd.(type) {
	case SetName:
		frame = nameFrame{Type: CommandTypeName, Name: c.Name}
	case SendMessage:
		frame = messageFrame{Type: CommandTypeMessage, Message: c.Body}
	case CreateRoom:
		frame = chatroomFrame{Type: CommandTypeCreate, Chatroom: c.Name}
	case JoinRoom:
		frame = chatroomFrame{Type: CommandTypeJoin, Chatroom: c.Name}
	default:
		return nil, fmt.Errorf("encode command: unsupported %T", cmd)
	}
	return json.Marshal(frame)
}

type inboundEnvelope struct {
	Type     string          `json:"type"`
	Query    *string         `json:"query"`
	Notice   *string         `json:"notice"`
	Chatroom *string         `json:"chatroom"`
	Event    json.RawMessage `json:"event"`
}

type eventEnvelope struct {
	Type      string            `json:"type"`
	Chatrooms []json.RawMessage `json:"chatrooms"`
	Data      json.RawMessage   `json:"data"`
	Name      *string           `json:"name"`
	Message   *string           `json:"message"`
}

// Decode parses a server frame. It returns *DecodeError for malformed frames
// and *UnknownEventError for events of an unrecognized sub-type.
func Decode(frame []byte) (Inbound, error) {
	var env inboundEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, decodeErr("invalid json", err)
	}

	switch env.Type {
	case InboundTypeQuery:
		if env.Query == nil {
			return nil, decodeErr("query without subject", nil)
		}
		if *env.Query != QuerySubjectName {
			return nil, decodeErr(fmt.Sprintf("unsupported query %q", *env.Query), nil)
		}
		return Query{Subject: *env.Query}, nil
	case InboundTypeNotice:
		if env.Notice == nil {
			return nil, decodeErr("notice without text", nil)
		}
		return Notice{Text: *env.Notice}, nil
	case InboundTypeJoin:
		if env.Chatroom == nil {
			return nil, decodeErr("join without chatroom", nil)
		}
		return JoinAck{Room: *env.Chatroom}, nil
	case InboundTypeEvent:
		if len(env.Event) == 0 || string(env.Event) == "null" {
			return nil, decodeErr("event without body", nil)
		}
		payload, err := decodeEvent(env.Event)
		if err != nil {
			return nil, err
		}
		return Event{Payload: payload}, nil
	default:
		return nil, decodeErr(fmt.Sprintf("unknown type %q", env.Type), nil)
	}
}

func decodeEvent(raw json.RawMessage) (EventPayload, error) {
	var ev eventEnvelope
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, decodeErr("invalid event", err)
	}
	if ev.Type == "" {
		return nil, decodeErr("event without type", nil)
	}

	switch ev.Type {
	case EventTypeListing:
		if ev.Chatrooms == nil {
			return nil, decodeErr("listing without chatrooms", nil)
		}
		rooms := make([]RoomCount, 0, len(ev.Chatrooms))
		for _, entry := range ev.Chatrooms {
			rc, err := decodeRoomCount(entry)
			if err != nil {
				return nil, err
			}
			rooms = append(rooms, rc)
		}
		return Listing{Rooms: rooms}, nil
	case EventTypeUpdate:
		if len(ev.Data) == 0 {
			return nil, decodeErr("update without data", nil)
		}
		rc, err := decodeRoomCount(ev.Data)
		if err != nil {
			return nil, err
		}
		return Update{Room: rc.Name, Count: rc.Count}, nil
	case EventTypeMessage:
		if ev.Name == nil {
			return nil, decodeErr("message without author", nil)
		}
		msg := ChatMessage{Author: *ev.Name}
		if ev.Message != nil {
			msg.Body = *ev.Message
		}
		return msg, nil
	case EventTypeNewUser, EventTypeLogoff, EventTypeNewChatroom:
		if ev.Name == nil {
			return nil, decodeErr(ev.Type+" without name", nil)
		}
		switch ev.Type {
		case EventTypeNewUser:
			return NewUser{Author: *ev.Name}, nil
		case EventTypeLogoff:
			return Logoff{Author: *ev.Name}, nil
		default:
			return NewRoom{Name: *ev.Name}, nil
		}
	default:
		return nil, &UnknownEventError{Type: ev.Type}
	}
}

// decodeRoomCount parses a [name, count] pair.
func decodeRoomCount(raw json.RawMessage) (RoomCount, error) {
	var pair []json.RawMessage
	if err := json.Unmarshal(raw, &pair); err != nil {
		return RoomCount{}, decodeErr("invalid room entry", err)
	}
	if len(pair) != 2 {
		return RoomCount{}, decodeErr(fmt.Sprintf("room entry has %d fields", len(pair)), nil)
	}

	var name *string
	if err := json.Unmarshal(pair[0], &name); err != nil {
		return RoomCount{}, decodeErr("invalid room name", err)
	}
	if name == nil || *name == "" {
		return RoomCount{}, decodeErr("room entry without name", nil)
	}

	rc := RoomCount{Name: *name}
	if err := json.Unmarshal(pair[1], &rc.Count); err != nil {
		return RoomCount{}, decodeErr("invalid member count", err)
	}
	if rc.Count < 0 {
		return RoomCount{}, decodeErr("negative member count", nil)
	}
	return rc, nil
}

// EncodeInbound serializes a server frame. Used by the chatroom server.
func EncodeInbound(msg Inbound) ([]byte, error) {
	var frame any
	switch m := msg.(type) {
	case Query:
		frame = queryFrame{Type: InboundTypeQuery, Query: m.Subject}
	case Notice:
		frame = noticeFrame{Type: InboundTypeNotice, Notice: m.Text}
	case JoinAck:
		frame = chatroomFrame{Type: InboundTypeJoin, Chatroom: m.Room}
	case Event:
		body, err := eventBody(m.Payload)
		if err != nil {
			return nil, err
		}
		frame = eventFrame{Type: InboundTypeEvent, Event: body}
	default:
		return nil, fmt.Errorf("encode inbound: unsupported %T", msg)
	}
	return json.Marshal(frame)
}

func eventBody(payload EventPayload) (any, error) {
	switch p := payload.(type) {
	case Listing:
		rooms := make([][]any, 0, len(p.Rooms))
		for _, rc := range p.Rooms {
			rooms = append(rooms, []any{rc.Name, rc.Count})
		}
		return listingEvent{Type: EventTypeListing, Chatrooms: rooms}, nil
	case Update:
		return updateEvent{Type: EventTypeUpdate, Data: []any{p.Room, p.Count}}, nil
	case ChatMessage:
		return messageEvent{Type: EventTypeMessage, Name: p.Author, Message: p.Body}, nil
	case NewUser:
		return nameEvent{Type: EventTypeNewUser, Name: p.Author}, nil
	case Logoff:
		return nameEvent{Type: EventTypeLogoff, Name: p.Author}, nil
	case NewRoom:
		return nameEvent{Type: EventTypeNewChatroom, Name: p.Name}, nil
	default:
		return nil, fmt.Errorf("encode event: unsupported %T", payload)
	}
}

type commandEnvelope struct {
	Type     string  `json:"type"`
	Name     *string `json:"name"`
	Message  *string `json:"message"`
	Chatroom *string `json:"chatroom"`
}

// DecodeCommand parses a client frame. Used by the chatroom server.
func DecodeCommand(frame []byte) (Command, error) {
	var env commandEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, decodeErr("invalid json", err)
	}

	switch env.Type {
	case CommandTypeName:
		if env.Name == nil {
			return nil, decodeErr("name without value", nil)
		}
		return SetName{Name: *env.Name}, nil
	case CommandTypeMessage:
		if env.Message == nil {
			return nil, decodeErr("message without body", nil)
		}
		return SendMessage{Body: *env.Message}, nil
	case CommandTypeCreate, CommandTypeJoin:
		if env.Chatroom == nil {
			return nil, decodeErr(env.Type+" without chatroom", nil)
		}
		if env.Type == CommandTypeCreate {
			return CreateRoom{Name: *env.Chatroom}, nil
		}
		return JoinRoom{Name: *env.Chatroom}, nil
	default:
		return nil, decodeErr(fmt.Sprintf("unknown type %q", env.Type), nil)
	}
}
