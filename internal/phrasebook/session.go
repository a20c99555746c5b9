package phrasebook

import (
	"context"
	"sync/atomic"
)

// Session is one consumer of the index, typically an open document.
// Sessions count towards Match.Instances until closed.
type Session struct {
	idx    *Index
	closed atomic.Bool
}

// Open starts a session.
func (idx *Index) Open() *Session {
	idx.sessions.Add(1)
	return &Session{idx: idx}
}

// Instances returns the number of open sessions.
func (idx *Index) Instances() int64 {
	return idx.sessions.Load()
}

// Lookup waits for initial loading to finish, then looks text up.
func (s *Session) Lookup(ctx context.Context, text string, offset int) (Match, bool, error) {
	if err := s.idx.Wait(ctx); err != nil {
		return Match{}, false, err
	}
	m, ok := s.idx.Lookup(text, offset)
	return m, ok, nil
}

// Close ends the session. Closing twice is harmless.
func (s *Session) Close() {
	if s.closed.CompareAndSwap(false, true) {
		s.idx.sessions.Add(-1)
	}
}
