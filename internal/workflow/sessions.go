package workflow

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

type conversation struct {
	mu    sync.Mutex
	state State
	// pins counts handles holding or waiting for mu; guarded by Sessions.mu.
	pins int
}

// Sessions tracks the workflow state of every conversation. Inputs for one
// conversation are serialized through its lock; conversations never block
// each other. Idle conversations live in the cache; a conversation that is
// locked or awaited is pinned in busy and cannot be evicted.
type Sessions struct {
	mu    sync.Mutex
	cache *cache.Cache
	busy  map[string]*conversation
}

// NewSessions creates a registry. A positive idleTTL evicts conversations that
// have been quiet for that long; zero or less keeps them forever.
func NewSessions(idleTTL time.Duration) *Sessions {
	expiration, cleanup := cache.NoExpiration, time.Duration(0)
	if idleTTL > 0 {
		expiration, cleanup = idleTTL, idleTTL
	}
	return &Sessions{
		cache: cache.New(expiration, cleanup),
		busy:  make(map[string]*conversation),
	}
}

// Session is a locked handle on one conversation. It must be released with Unlock.
type Session struct {
	id       string
	conv     *conversation
	sessions *Sessions
}

// Lock blocks until the conversation is free and returns its handle.
func (s *Sessions) Lock(conversationID string) *Session {
	conv := s.pin(conversationID)
	conv.mu.Lock()
	return &Session{id: conversationID, conv: conv, sessions: s}
}

// Active returns the number of tracked conversations.
func (s *Sessions) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := s.cache.ItemCount()
	for id := range s.busy {
		if _, cached := s.cache.Get(id); !cached {
			count++
		}
	}
	return count
}

func (s *Sessions) pin(id string) *conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.busy[id]
	if !ok {
		if v, cached := s.cache.Get(id); cached {
			conv = v.(*conversation)
		} else {
			conv = &conversation{}
		}
		s.busy[id] = conv
	}
	conv.pins++
	return conv
}

func (s *Sessions) unpin(id string, conv *conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Refreshes the idle deadline and restores the entry if it expired while held.
	s.cache.Set(id, conv, cache.DefaultExpiration)
	conv.pins--
	if conv.pins == 0 {
		delete(s.busy, id)
	}
}

// State returns the in-progress workflow state, if any.
func (h *Session) State() (State, bool) {
	return h.conv.state, h.conv.state != nil
}

// Set stores the workflow state for the conversation.
func (h *Session) Set(state State) {
	h.conv.state = state
}

// Clear discards the workflow state.
func (h *Session) Clear() {
	h.conv.state = nil
}

// Unlock releases the conversation.
func (h *Session) Unlock() {
	h.conv.mu.Unlock()
	h.sessions.unpin(h.id, h.conv)
}
