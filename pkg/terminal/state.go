package terminal

import (
	"slices"
	"sync"
)

// Message is one received text message
type Message struct {
	SenderID int
	Text     string
}

// State is the terminal's inbox and peer list. It is written by the network
// link and read by the UI loop; every method holds the lock for exactly one
// read-modify-write and never across I/O.
type State struct {
	mu    sync.RWMutex
	self  int
	inbox []Message
	peers []int
}

// NewState creates an empty state with no assigned id
func NewState() *State {
	return &State{}
}

// SetSelf records the relay-assigned id
func (s *State) SetSelf(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.self = id
}

// Self returns the relay-assigned id, or 0 before INIT
func (s *State) Self() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.self
}

// AppendMessage adds a message at the end of the inbox
func (s *State) AppendMessage(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inbox = append(s.inbox, m)
}

// DeleteMessage removes the message at index i. Returns false if i is out
// of range.
func (s *State) DeleteMessage(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.inbox) {
		return false
	}
	s.inbox = slices.Delete(s.inbox, i, i+1)
	return true
}

// Message returns the message at index i
func (s *State) Message(i int) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.inbox) {
		return Message{}, false
	}
	return s.inbox[i], true
}

// InboxLen returns the number of messages
func (s *State) InboxLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.inbox)
}

// Inbox returns a copy of all messages
func (s *State) Inbox() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.inbox)
}

// ReplacePeers replaces the peer list with roster minus self. Self is
// filtered by value, wherever it appears.
func (s *State) ReplacePeers(roster []int, self int) {
	peers := make([]int, 0, len(roster))
	for _, id := range roster {
		if id != self {
			peers = append(peers, id)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.peers = peers
}

// Peers returns a copy of the peer list
func (s *State) Peers() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.peers)
}

// PeerCount returns the number of known peers
func (s *State) PeerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peers)
}

// Peer returns the peer id at index i
func (s *State) Peer(i int) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.peers) {
		return 0, false
	}
	return s.peers[i], true
}
