package inspection

import (
	"sync"

	"github.com/mamaar/constprop/pkg/types"
)

// Session remembers pending auto fixes. At most one literal per top-level
// class is pending; inspecting a literal of another class releases it.
type Session struct {
	mu      sync.Mutex
	pending map[string]string // class -> literal key
	current string
}

func NewSession() *Session {
	return &Session{pending: make(map[string]string)}
}

// Visit records that a literal of class is being inspected
func (s *Session) Visit(class string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if class != s.current {
		delete(s.pending, s.current)
		s.current = class
	}
}

// Claim makes lit the pending fix of its class. It fails while another
// literal of the same class is pending.
func (s *Session) Claim(lit *types.Literal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, busy := s.pending[lit.Class]
	if busy {
		return key == lit.Key()
	}
	s.pending[lit.Class] = lit.Key()
	return true
}

// Done releases the pending fix of class
func (s *Session) Done(class string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, class)
}

// Pending reports whether class has a pending fix
func (s *Session) Pending(class string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[class]
	return ok
}
