package core

// Chatroom is one entry of the chatroom listing. Name is the identity key.
type Chatroom struct {
	Name        string
	MemberCount int
}
