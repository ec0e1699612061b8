// Package quotes orchestrates quoting runs: screening reported health
// conditions, pricing, eligibility annotation, and ordering.
package quotes

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/life-quote-server/internal/domain"
)

// Session accumulates an applicant's reported conditions and answers over
// an interactive screening flow. All state lives here, keyed by session
// id, so concurrent applicants never see each other's answers.
type Session struct {
	ID        string
	Coverage  domain.CoverageType
	CreatedAt time.Time

	mu         sync.RWMutex
	conditions map[string]map[string]string // condition name -> question id -> answer value
	order      []string                     // condition names in the order first reported
	touchedAt  time.Time
}

// RecordAnswer stores an answer for a question within a condition's walk,
// adding the condition on first touch. The order conditions are first
// reported in is remembered; a carrier declined by several conditions
// keeps the earliest one's reason.
func (s *Session) RecordAnswer(condition, questionID, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conditions[condition] == nil {
		s.conditions[condition] = make(map[string]string)
		s.order = append(s.order, condition)
	}
	s.conditions[condition][questionID] = value
	s.touchedAt = time.Now()
}

// RemoveCondition drops a reported condition and all its answers.
func (s *Session) RemoveCondition(condition string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conditions, condition)
	for i, name := range s.order {
		if name == condition {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.touchedAt = time.Now()
}

// Answers returns a copy of the recorded answers for one condition.
func (s *Session) Answers(condition string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	answers := make(map[string]string, len(s.conditions[condition]))
	for k, v := range s.conditions[condition] {
		answers[k] = v
	}
	return answers
}

// Selected snapshots the session as the condition list a quote request
// carries, in the order the conditions were first reported.
func (s *Session) Selected() []domain.SelectedCondition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	selected := make([]domain.SelectedCondition, 0, len(s.order))
	for _, name := range s.order {
		answers := s.conditions[name]
		copied := make(map[string]string, len(answers))
		for k, v := range answers {
			copied[k] = v
		}
		selected = append(selected, domain.SelectedCondition{Name: name, Answers: copied})
	}
	return selected
}

// SessionStore manages in-memory screening sessions with idle expiry.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
}

// NewSessionStore creates a session store. Sessions idle longer than ttl
// are dropped lazily on access; a zero ttl disables expiry.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

// Create starts a new session for a coverage line.
func (st *SessionStore) Create(coverage domain.CoverageType) *Session {
	now := time.Now()
	s := &Session{
		ID:         uuid.New().String(),
		Coverage:   coverage,
		CreatedAt:  now,
		conditions: make(map[string]map[string]string),
		touchedAt:  now,
	}
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

// Get returns a live session by id.
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if st.ttl > 0 {
		s.mu.RLock()
		expired := time.Since(s.touchedAt) > st.ttl
		s.mu.RUnlock()
		if expired {
			st.Delete(id)
			return nil, false
		}
	}
	return s, true
}

// Delete removes a session.
func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}
