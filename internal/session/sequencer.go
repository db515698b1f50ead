package session

import (
	"errors"
	"sync"
)

// ErrSuperseded means a newer submission from the same session started
// while this one was in flight; its result must not be shown.
var ErrSuperseded = errors.New("superseded by a newer submission")

type Token uint64

// Sequencer hands out increasing tokens per session so the handler can
// tell whether a finished request is still the latest one.
type Sequencer struct {
	mu     sync.Mutex
	latest map[string]Token
	next   Token
}

func NewSequencer() *Sequencer { return &Sequencer{latest: make(map[string]Token)} }

func (s *Sequencer) Begin(sessionID string) Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.latest[sessionID] = s.next
	return s.next
}

func (s *Sequencer) Latest(sessionID string, t Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest[sessionID] == t
}

// Done forgets the session's token if t is still the latest.
func (s *Sequencer) Done(sessionID string, t Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest[sessionID] == t {
		delete(s.latest, sessionID)
	}
}
