package oauth2

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultStateTTL bounds how long a user has to complete the consent page
const DefaultStateTTL = 10 * time.Minute

// StateStore maps the opaque state parameter of pending authorizations to user ids.
// Each state can be consumed once.
type StateStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	pending map[string]pendingState
}

type pendingState struct {
	userID  string
	expires time.Time
}

func NewStateStore(ttl time.Duration, now func() time.Time) *StateStore {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	if now == nil {
		now = time.Now
	}
	return &StateStore{
		ttl:     ttl,
		now:     now,
		pending: make(map[string]pendingState),
	}
}

// Issue returns a new random state bound to userID
func (s *StateStore) Issue(userID string) string {
	state := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked()
	s.pending[state] = pendingState{userID: userID, expires: s.now().Add(s.ttl)}
	return state
}

// Consume returns the user bound to state and forgets it
func (s *StateStore) Consume(state string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.pending[state]
	if !ok {
		return "", false
	}
	delete(s.pending, state)

	if s.now().After(entry.expires) {
		return "", false
	}
	return entry.userID, true
}

// Prune forgets expired states and returns how many were dropped
func (s *StateStore) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruneLocked()
}

func (s *StateStore) pruneLocked() int {
	now := s.now()
	dropped := 0
	for state, entry := range s.pending {
		if now.After(entry.expires) {
			delete(s.pending, state)
			dropped++
		}
	}
	return dropped
}
