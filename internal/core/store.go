package core

import "sync"

// Snapshot is a deep copy of the store at one point in time.
type Snapshot struct {
	Name       string
	HasName    bool
	Rooms      []Chatroom
	ActiveRoom string
	HasActive  bool
	Messages   []Message
	Overlay    Overlay
}

// Store holds the local view of the chat: identity, chatrooms, the active
// room, its message log and the overlay status.
//
// The active room is kept by name and always resolves to an entry of rooms.
// The message log belongs to a single room session and is emptied whenever
// the active room changes or the chatroom set is replaced.
type Store struct {
	mu        sync.RWMutex
	name      string
	hasName   bool
	rooms     []Chatroom
	active    string
	hasActive bool
	messages  []Message
	overlay   Overlay

	obsMu     sync.Mutex
	nextObsID int
	observers map[int]func(Change)
}

// NewStore returns an empty store with the overlay switched off.
func NewStore() *Store {
	return &Store{
		overlay:   Off(),
		observers: make(map[int]func(Change)),
	}
}

// Subscribe registers fn to be called after every mutation. Observers run on
// the mutating goroutine with no store lock held.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.obsMu.Lock()
	id := s.nextObsID
	s.nextObsID++
	s.observers[id] = fn
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

func (s *Store) notify(c Change) {
	if c == 0 {
		return
	}
	s.obsMu.Lock()
	fns := make([]func(Change), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.obsMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

// Snapshot returns a copy of every field.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Name:       s.name,
		HasName:    s.hasName,
		Rooms:      append([]Chatroom(nil), s.rooms...),
		ActiveRoom: s.active,
		HasActive:  s.hasActive,
		Messages:   append([]Message(nil), s.messages...),
		Overlay:    s.overlay,
	}
}

// Name returns the display name and whether one was set.
func (s *Store) Name() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name, s.hasName
}

// Rooms returns the chatrooms in listing order.
func (s *Store) Rooms() []Chatroom {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Chatroom(nil), s.rooms...)
}

// Room looks up a chatroom by name.
func (s *Store) Room(name string) (Chatroom, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexLocked(name)
	if i < 0 {
		return Chatroom{}, false
	}
	return s.rooms[i], true
}

// ActiveRoom resolves the active room against the current set.
func (s *Store) ActiveRoom() (Chatroom, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasActive {
		return Chatroom{}, false
	}
	i := s.indexLocked(s.active)
	if i < 0 {
		return Chatroom{}, false
	}
	return s.rooms[i], true
}

// Messages returns the message log in display order.
func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Message(nil), s.messages...)
}

// Overlay returns the current overlay status.
func (s *Store) Overlay() Overlay {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overlay
}

func (s *Store) indexLocked(name string) int {
	for i := range s.rooms {
		if s.rooms[i].Name == name {
			return i
		}
	}
	return -1
}

// SetName records the local display name.
func (s *Store) SetName(name string) {
	s.mu.Lock()
	changed := !s.hasName || s.name != name
	s.name = name
	s.hasName = true
	s.mu.Unlock()

	if changed {
		s.notify(ChangeName)
	}
}

// ReplaceRooms swaps the whole chatroom set, clearing the active room and the
// message log. Later duplicates of a name are dropped.
func (s *Store) ReplaceRooms(rooms []Chatroom) {
	next := make([]Chatroom, 0, len(rooms))
	seen := make(map[string]struct{}, len(rooms))
	for _, r := range rooms {
		if _, dup := seen[r.Name]; dup {
			continue
		}
		seen[r.Name] = struct{}{}
		next = append(next, r)
	}

	s.mu.Lock()
	s.rooms = next
	s.active = ""
	s.hasActive = false
	s.messages = nil
	s.mu.Unlock()

	s.notify(ChangeRooms | ChangeActiveRoom | ChangeMessages)
}

// AddRoom appends a chatroom unless the name already exists. It reports
// whether the room was added.
func (s *Store) AddRoom(room Chatroom) bool {
	s.mu.Lock()
	if s.indexLocked(room.Name) >= 0 {
		s.mu.Unlock()
		return false
	}
	s.rooms = append(s.rooms, room)
	s.mu.Unlock()

	s.notify(ChangeRooms)
	return true
}

// UpdateMemberCount sets the count of an existing room. Unknown rooms are
// left alone and false is returned.
func (s *Store) UpdateMemberCount(name string, count int) bool {
	s.mu.Lock()
	i := s.indexLocked(name)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.rooms[i].MemberCount = count
	s.mu.Unlock()

	s.notify(ChangeRooms)
	return true
}

// SetActiveRoom clears the message log and makes name the active room if it
// exists in the set; otherwise the active room becomes none. It reports
// whether the room was found.
func (s *Store) SetActiveRoom(name string) bool {
	s.mu.Lock()
	found := s.indexLocked(name) >= 0
	s.active = ""
	s.hasActive = false
	if found {
		s.active = name
		s.hasActive = true
	}
	s.messages = nil
	s.mu.Unlock()

	s.notify(ChangeActiveRoom | ChangeMessages)
	return found
}

// ClearActiveRoom drops the active room and its message log.
func (s *Store) ClearActiveRoom() {
	s.mu.Lock()
	s.active = ""
	s.hasActive = false
	s.messages = nil
	s.mu.Unlock()

	s.notify(ChangeActiveRoom | ChangeMessages)
}

// AppendMessage adds a message to the end of the log.
func (s *Store) AppendMessage(msg Message) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	s.notify(ChangeMessages)
}

// ClearMessages empties the log.
func (s *Store) ClearMessages() {
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()

	s.notify(ChangeMessages)
}

// SetOverlay replaces the overlay status.
func (s *Store) SetOverlay(o Overlay) {
	s.mu.Lock()
	changed := s.overlay != o
	s.overlay = o
	s.mu.Unlock()

	if changed {
		s.notify(ChangeOverlay)
	}
}

// CompareAndSetOverlay replaces the overlay only while its mode equals from.
func (s *Store) CompareAndSetOverlay(from OverlayMode, to Overlay) bool {
	s.mu.Lock()
	if s.overlay.Mode != from {
		s.mu.Unlock()
		return false
	}
	changed := s.overlay != to
	s.overlay = to
	s.mu.Unlock()

	if changed {
		s.notify(ChangeOverlay)
	}
	return true
}
