package auth

import (
	"sync"
	"time"

	"github.com/desertthunder/vibe/internal/shared"
)

// TokenState is the per-session upstream token set.
type TokenState struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Valid reports whether the access token can be used at now.
func (t TokenState) Valid(now time.Time) bool {
	return t.AccessToken != "" && now.Before(t.ExpiresAt)
}

// Empty reports whether no tokens are held.
func (t TokenState) Empty() bool {
	return t.AccessToken == "" && t.RefreshToken == ""
}

// Session is the capability a request holds over its own token state.
//
// Only the handshake (on callback) and the [Provider] (on refresh) mutate it.
type Session interface {
	// ID is stable for the life of the session and keys refresh serialization.
	ID() string
	Tokens() TokenState
	SetTokens(TokenState)
	State() string
	SetState(string)
	ClearState()
}

// MemorySession is a [Session] held in process memory.
type MemorySession struct {
	mu     sync.Mutex
	id     string
	tokens TokenState
	state  string
}

func NewMemorySession() *MemorySession {
	return &MemorySession{id: shared.GenerateID()}
}

func (s *MemorySession) ID() string {
	return s.id
}

func (s *MemorySession) Tokens() TokenState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens
}

func (s *MemorySession) SetTokens(t TokenState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = t
}

func (s *MemorySession) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *MemorySession) SetState(state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *MemorySession) ClearState() {
	s.SetState("")
}
