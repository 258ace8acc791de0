package notifications

import (
	"slices"
	"sync"
)

// Subscribers is the in-memory set of alert destinations. Membership is
// ephemeral: chats join on interaction and leave on permanent failure.
type Subscribers struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewSubscribers returns an empty set.
func NewSubscribers() *Subscribers {
	return &Subscribers{ids: make(map[string]struct{})}
}

// Add inserts id and reports whether it was new.
func (s *Subscribers) Add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Remove deletes id and reports whether it was present.
func (s *Subscribers) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; !ok {
		return false
	}
	delete(s.ids, id)
	return true
}

// Contains reports membership.
func (s *Subscribers) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// List returns a sorted copy.
func (s *Subscribers) List() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	s.mu.RUnlock()
	slices.Sort(out)
	return out
}

// Len returns the number of subscribers.
func (s *Subscribers) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}
