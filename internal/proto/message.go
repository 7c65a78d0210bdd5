package proto

// Wire type tags for frames sent by the client.
const (
	CommandTypeName    = "name"
	CommandTypeMessage = "message"
	CommandTypeCreate  = "create"
	CommandTypeJoin    = "join"
)

// Wire type tags for frames sent by the server.
const (
	InboundTypeQuery  = "query"
	InboundTypeNotice = "notice"
	InboundTypeJoin   = "join"
	InboundTypeEvent  = "event"

	EventTypeListing     = "listing"
	EventTypeUpdate      = "update"
	EventTypeMessage     = "message"
	EventTypeNewUser     = "newuser"
	EventTypeLogoff      = "logoff"
	EventTypeNewChatroom = "newchatroom"

	// QuerySubjectName is the only query the server issues.
	QuerySubjectName = "name"
)

// Command is a client->server frame. The set of implementations is closed.
type Command interface {
	commandType() string
}

// SetName announces or changes the local display name.
type SetName struct {
	Name string
}

// SendMessage posts a chat message into the active room.
type SendMessage struct {
	Body string
}

// CreateRoom asks the server to create a chatroom.
type CreateRoom struct {
	Name string
}

// JoinRoom asks the server to move the client into a chatroom.
type JoinRoom struct {
	Name string
}

func (SetName) commandType() string     { return CommandTypeName }
func (SendMessage) commandType() string { return CommandTypeMessage }
func (CreateRoom) commandType() string  { return CommandTypeCreate }
func (JoinRoom) commandType() string    { return CommandTypeJoin }

// Inbound is a server->client frame. The set of implementations is closed.
type Inbound interface {
	inboundType() string
}

// Query asks the client for information; Subject is always "name".
type Query struct {
	Subject string
}

// Notice carries text the user should acknowledge.
type Notice struct {
	Text string
}

// JoinAck tells the client which room it is now in.
type JoinAck struct {
	Room string
}

// Event wraps a room or listing event.
type Event struct {
	Payload EventPayload
}

func (Query) inboundType() string   { return InboundTypeQuery }
func (Notice) inboundType() string  { return InboundTypeNotice }
func (JoinAck) inboundType() string { return InboundTypeJoin }
func (Event) inboundType() string   { return InboundTypeEvent }

// EventPayload is the body of an Event. The set of implementations is closed.
type EventPayload interface {
	eventType() string
}

// RoomCount pairs a chatroom name with its member count.
type RoomCount struct {
	Name  string
	Count int
}

// Listing replaces the whole chatroom set.
type Listing struct {
	Rooms []RoomCount
}

// Update sets the member count of one room.
type Update struct {
	Room  string
	Count int
}

// ChatMessage is a message posted in the active room.
type ChatMessage struct {
	Author string
	Body   string
}

// NewUser reports that someone entered the active room.
type NewUser struct {
	Author string
}

// Logoff reports that someone left the active room.
type Logoff struct {
	Author string
}

// NewRoom reports that a chatroom was created.
type NewRoom struct {
	Name string
}

func (Listing) eventType() string     { return EventTypeListing }
func (Update) eventType() string      { return EventTypeUpdate }
func (ChatMessage) eventType() string { return EventTypeMessage }
func (NewUser) eventType() string     { return EventTypeNewUser }
func (Logoff) eventType() string      { return EventTypeLogoff }
func (NewRoom) eventType() string     { return EventTypeNewChatroom }
