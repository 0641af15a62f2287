package authn

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultMaxSessions bounds the correlation table so abandoned logins
	// cannot grow it without limit.
	DefaultMaxSessions = 10000
	// DefaultPendingTTL is how long a login attempt may stay unanswered.
	DefaultPendingTTL = 10 * time.Minute
	// DefaultSessionTTL is the sliding lifetime of a completed session.
	DefaultSessionTTL = 200 * time.Second
)

// MemorySessionStore is a mutex-guarded in-memory correlation table with
// TTL eviction and a hard entry cap. Pending entries expire a fixed time
// after creation; completed entries expire after a sliding window from
// their last use.
type MemorySessionStore struct {
	sessions    map[string]*Session
	lock        sync.RWMutex
	maxSessions int
	pendingTTL  time.Duration
	sessionTTL  time.Duration
	now         func() time.Time
}

func NewMemorySessionStore(maxSessions int, pendingTTL, sessionTTL time.Duration) *MemorySessionStore {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if pendingTTL <= 0 {
		pendingTTL = DefaultPendingTTL
	}
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &MemorySessionStore{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		pendingTTL:  pendingTTL,
		sessionTTL:  sessionTTL,
		now:         time.Now,
	}
}

func (s *MemorySessionStore) CreateSession(session *Session) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	now := s.now()
	s.evictLocked(now)

	if _, ok := s.sessions[session.ID]; ok {
		return fmt.Errorf("authn: session %q already exists", session.ID)
	}

	if len(s.sessions) >= s.maxSessions {
		s.evictOldestLocked()
	}

	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}

func (s *MemorySessionStore) GetSession(id string) (*Session, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	session, ok := s.sessions[id]
	if !ok || s.expired(session, s.now()) {
		delete(s.sessions, id)
		return nil, ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (s *MemorySessionStore) UpdateSession(id string, fn func(*Session) error) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	session, ok := s.sessions[id]
	if !ok || s.expired(session, s.now()) {
		delete(s.sessions, id)
		return ErrSessionNotFound
	}
	return fn(session)
}

func (s *MemorySessionStore) DeleteSession(id string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *MemorySessionStore) expired(session *Session, now time.Time) bool {
	if session.Valid {
		return now.Sub(session.LastSeen) > s.sessionTTL
	}
	return now.Sub(session.CreatedAt) > s.pendingTTL
}

func (s *MemorySessionStore) evictLocked(now time.Time) {
	for id, session := range s.sessions {
		if s.expired(session, now) {
			delete(s.sessions, id)
		}
	}
}

// evictOldestLocked drops the least recently seen entry to stay under the
// cap. Pending entries are preferred victims over live sessions.
func (s *MemorySessionStore) evictOldestLocked() {
	var victim string
	var victimSession *Session
	for id, session := range s.sessions {
		if victimSession == nil ||
			(victimSession.Valid && !session.Valid) ||
			(victimSession.Valid == session.Valid && session.LastSeen.Before(victimSession.LastSeen)) {
			victim = id
			victimSession = session
		}
	}
	if victim != "" {
		slog.Warn("correlation table full, evicting entry", "id", victim, "valid", victimSession.Valid)
		delete(s.sessions, victim)
	}
}
