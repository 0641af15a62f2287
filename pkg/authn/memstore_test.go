package authn

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

// testClock lets the tests move the store's notion of time forward.
type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time {
	return c.t
}

func (c *testClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestStore(maxSessions int, pendingTTL, sessionTTL time.Duration) (*MemorySessionStore, *testClock) {
	clock := &testClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemorySessionStore(maxSessions, pendingTTL, sessionTTL)
	store.now = clock.now
	return store, clock
}

func pendingSession(id string, at time.Time) *Session {
	return &Session{ID: id, CreatedAt: at, LastSeen: at}
}

func TestCreateSessionRejectsDuplicateKey(t *testing.T) {
	store, clock := newTestStore(0, 0, 0)

	if err := store.CreateSession(pendingSession("key-1", clock.t)); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateSession(pendingSession("key-1", clock.t)); err == nil {
		t.Error("expected duplicate key to be rejected")
	}
}

func TestGetSessionReturnsCopy(t *testing.T) {
	store, clock := newTestStore(0, 0, 0)

	if err := store.CreateSession(pendingSession("key-1", clock.t)); err != nil {
		t.Fatal(err)
	}
	session, err := store.GetSession("key-1")
	if err != nil {
		t.Fatal(err)
	}
	session.Valid = true

	again, err := store.GetSession("key-1")
	if err != nil {
		t.Fatal(err)
	}
	if again.Valid {
		t.Error("mutation of the returned session leaked into the store")
	}
}

func TestPendingSessionExpires(t *testing.T) {
	store, clock := newTestStore(0, 10*time.Minute, 200*time.Second)

	if err := store.CreateSession(pendingSession("key-1", clock.t)); err != nil {
		t.Fatal(err)
	}

	clock.advance(10*time.Minute + time.Second)
	if _, err := store.GetSession("key-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestValidSessionSlidingExpiry(t *testing.T) {
	store, clock := newTestStore(0, 10*time.Minute, 200*time.Second)

	if err := store.CreateSession(pendingSession("key-1", clock.t)); err != nil {
		t.Fatal(err)
	}
	promote := func() error {
		return store.UpdateSession("key-1", func(s *Session) error {
			s.Valid = true
			s.LastSeen = clock.t
			return nil
		})
	}
	if err := promote(); err != nil {
		t.Fatal(err)
	}

	// touching within the window keeps the session alive past the
	// original deadline
	for i := 0; i < 3; i++ {
		clock.advance(150 * time.Second)
		err := store.UpdateSession("key-1", func(s *Session) error {
			s.LastSeen = clock.t
			return nil
		})
		if err != nil {
			t.Fatalf("touch %d: %v", i, err)
		}
	}

	clock.advance(201 * time.Second)
	if _, err := store.GetSession("key-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after idle window, got %v", err)
	}
}

func TestCapEvictsPendingFirst(t *testing.T) {
	store, clock := newTestStore(2, 10*time.Minute, 200*time.Second)

	if err := store.CreateSession(pendingSession("valid", clock.t)); err != nil {
		t.Fatal(err)
	}
	err := store.UpdateSession("valid", func(s *Session) error {
		s.Valid = true
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.CreateSession(pendingSession("pending", clock.t)); err != nil {
		t.Fatal(err)
	}

	// table is at capacity, the pending entry must be the victim
	if err := store.CreateSession(pendingSession("newcomer", clock.t)); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetSession("pending"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected pending entry to be evicted, got %v", err)
	}
	if _, err := store.GetSession("valid"); err != nil {
		t.Errorf("valid session must survive eviction, got %v", err)
	}
}

func TestCreateSweepsExpiredEntries(t *testing.T) {
	store, clock := newTestStore(0, time.Minute, 200*time.Second)

	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("stale-%d", i)
		if err := store.CreateSession(pendingSession(id, clock.t)); err != nil {
			t.Fatal(err)
		}
	}

	clock.advance(2 * time.Minute)
	if err := store.CreateSession(pendingSession("fresh", clock.t)); err != nil {
		t.Fatal(err)
	}

	store.lock.RLock()
	count := len(store.sessions)
	store.lock.RUnlock()
	if count != 1 {
		t.Errorf("expected only the fresh entry to remain, have %d", count)
	}
}
