package authn

import (
	"errors"
	"time"

	"github.com/pixbin/pixbin/pkg/saml"
)

// ErrSessionNotFound is returned by stores for unknown or expired keys.
var ErrSessionNotFound = errors.New("authn: session not found")

// Session is one entry of the correlation table, keyed by the request ID
// issued when the login redirect was built. The same key doubles as the
// session token once the assertion arrives: a pending entry has Valid
// false and no attributes, a completed one carries the asserted identity.
type Session struct {
	ID         string
	Context    saml.RequestContext
	Attributes saml.Attributes
	Valid      bool
	CreatedAt  time.Time
	LastSeen   time.Time
}

// SessionStore is the correlation table. Implementations must make
// CreateSession an atomic check-then-insert and UpdateSession an atomic
// read-modify-write, since the redirect-issuing request and the IdP
// callback race on the same key.
type SessionStore interface {
	// CreateSession inserts a new entry and fails if the key is taken.
	CreateSession(session *Session) error
	// GetSession returns the entry for the key, or ErrSessionNotFound.
	GetSession(id string) (*Session, error)
	// UpdateSession applies fn to the stored entry under the store's
	// lock, or returns ErrSessionNotFound.
	UpdateSession(id string, fn func(*Session) error) error
	// DeleteSession removes the entry. Unknown keys are not an error.
	DeleteSession(id string) error
}
