// Package authn owns the correlation between outstanding login attempts
// and completed assertions. The broker issues redirect targets toward the
// IdP, consumes the assertions posted back, and answers "is this session
// authenticated, and as whom" queries.
package authn

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pixbin/pixbin/pkg/saml"
)

// ErrUnknownRequest is returned when a callback references no pending login.
var ErrUnknownRequest = errors.New("authn: no pending login for this key")

// VerificationError wraps the verifier's rejection of an assertion.
type VerificationError struct {
	Err error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("authn: assertion verification failed: %v", e.Err)
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

type Broker struct {
	verifier saml.Verifier
	store    SessionStore
}

func NewBroker(verifier saml.Verifier, store SessionStore) *Broker {
	return &Broker{
		verifier: verifier,
		store:    store,
	}
}

// BeginLogin starts a fresh authentication attempt for the given request
// context. It returns the IdP redirect target and the correlation key the
// caller must hand to the client as its session token. Setting the cookie
// is the caller's job.
func (b *Broker) BeginLogin(rc saml.RequestContext) (string, string, error) {
	redirectURL, requestID, err := b.verifier.Initiate(rc)
	if err != nil {
		return "", "", fmt.Errorf("initiating login: %w", err)
	}

	rc.RequestID = requestID
	now := time.Now()
	session := &Session{
		ID:        requestID,
		Context:   rc,
		CreatedAt: now,
		LastSeen:  now,
	}
	if err := b.store.CreateSession(session); err != nil {
		return "", "", fmt.Errorf("registering pending login: %w", err)
	}

	slog.Info("login started", "key", requestID, "host", rc.Host)
	return redirectURL, requestID, nil
}

// CompleteLogin consumes the assertion the IdP posted back for the given
// correlation key. On success the pending entry is promoted in place and
// the asserted attributes are returned; the key keeps working as the
// session token. A failed verification leaves the table untouched.
func (b *Broker) CompleteLogin(key string, rawAssertion []byte) (saml.Attributes, error) {
	session, err := b.store.GetSession(key)
	if err != nil {
		return nil, ErrUnknownRequest
	}

	attrs, err := b.verifier.Verify(session.Context, rawAssertion)
	if err != nil {
		slog.Error("assertion rejected", "key", key, "error", err)
		return nil, &VerificationError{Err: err}
	}

	err = b.store.UpdateSession(key, func(s *Session) error {
		s.Attributes = attrs
		s.Valid = true
		s.LastSeen = time.Now()
		return nil
	})
	if errors.Is(err, ErrSessionNotFound) {
		// the pending entry expired between lookup and promotion
		return nil, ErrUnknownRequest
	}
	if err != nil {
		return nil, fmt.Errorf("promoting session: %w", err)
	}

	slog.Info("login completed", "key", key)
	return attrs, nil
}

// Resolve returns the attributes bound to the key if it refers to a valid
// completed assertion. It never mutates the table; refreshing the sliding
// expiry is the gateway's job via Touch.
func (b *Broker) Resolve(key string) (saml.Attributes, bool) {
	session, err := b.store.GetSession(key)
	if err != nil || !session.Valid {
		return nil, false
	}
	return session.Attributes, true
}

// Touch re-arms the sliding expiry of a completed session.
func (b *Broker) Touch(key string) error {
	return b.store.UpdateSession(key, func(s *Session) error {
		if !s.Valid {
			return ErrSessionNotFound
		}
		s.LastSeen = time.Now()
		return nil
	})
}
