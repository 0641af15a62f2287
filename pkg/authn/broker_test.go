package authn_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pixbin/pixbin/pkg/authn"
	"github.com/pixbin/pixbin/pkg/saml"
)

// stubVerifier hands out sequential request IDs and accepts or rejects
// every assertion wholesale.
type stubVerifier struct {
	nextID int
	reject error
	seen   saml.RequestContext
}

func (v *stubVerifier) Initiate(rc saml.RequestContext) (string, string, error) {
	v.nextID++
	id := fmt.Sprintf("id-%d", v.nextID)
	return "http://idp.example/login?SAMLRequest=" + id, id, nil
}

func (v *stubVerifier) Verify(rc saml.RequestContext, rawAssertion []byte) (saml.Attributes, error) {
	v.seen = rc
	if v.reject != nil {
		return nil, v.reject
	}
	return saml.Attributes{"username": {"alice"}}, nil
}

func newTestBroker(reject error) (*authn.Broker, *stubVerifier) {
	verifier := &stubVerifier{reject: reject}
	store := authn.NewMemorySessionStore(0, time.Minute, time.Minute)
	return authn.NewBroker(verifier, store), verifier
}

func TestLoginLifecycle(t *testing.T) {
	broker, verifier := newTestBroker(nil)
	rc := saml.RequestContext{Host: "sp.example", Path: "/"}

	redirectURL, key, err := broker.BeginLogin(rc)
	if err != nil {
		t.Fatal(err)
	}
	if redirectURL == "" || key == "" {
		t.Fatalf("incomplete login start: url=%q key=%q", redirectURL, key)
	}

	// not authenticated until the assertion arrives
	if _, ok := broker.Resolve(key); ok {
		t.Error("pending login must not resolve")
	}

	attrs, err := broker.CompleteLogin(key, []byte("assertion"))
	if err != nil {
		t.Fatal(err)
	}
	username, err := attrs.Username()
	if err != nil || username != "alice" {
		t.Fatalf("unexpected identity %q, %v", username, err)
	}

	// the verifier must see the request ID it issued, for correlation
	if verifier.seen.RequestID != key {
		t.Errorf("verify saw request ID %q, want %q", verifier.seen.RequestID, key)
	}

	// the same key now resolves as an authenticated session
	attrs, ok := broker.Resolve(key)
	if !ok {
		t.Fatal("completed login must resolve")
	}
	if username, _ := attrs.Username(); username != "alice" {
		t.Errorf("resolved identity %q, want alice", username)
	}
	if err := broker.Touch(key); err != nil {
		t.Errorf("touching a valid session: %v", err)
	}
}

func TestCompleteLoginUnknownKey(t *testing.T) {
	broker, _ := newTestBroker(nil)

	_, err := broker.CompleteLogin("never-issued", []byte("assertion"))
	if !errors.Is(err, authn.ErrUnknownRequest) {
		t.Errorf("expected ErrUnknownRequest, got %v", err)
	}
}

func TestFailedVerificationStoresNothing(t *testing.T) {
	broker, _ := newTestBroker(errors.New("bad signature"))

	_, key, err := broker.BeginLogin(saml.RequestContext{Host: "sp.example"})
	if err != nil {
		t.Fatal(err)
	}

	_, err = broker.CompleteLogin(key, []byte("assertion"))
	var verr *authn.VerificationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected VerificationError, got %v", err)
	}

	if _, ok := broker.Resolve(key); ok {
		t.Error("rejected assertion must not authenticate the session")
	}
}

func TestTouchRejectsPendingSession(t *testing.T) {
	broker, _ := newTestBroker(nil)

	_, key, err := broker.BeginLogin(saml.RequestContext{Host: "sp.example"})
	if err != nil {
		t.Fatal(err)
	}
	if err := broker.Touch(key); err == nil {
		t.Error("touching a pending login must fail")
	}
}

func TestEachLoginGetsDistinctKey(t *testing.T) {
	broker, _ := newTestBroker(nil)

	_, first, err := broker.BeginLogin(saml.RequestContext{Host: "sp.example"})
	if err != nil {
		t.Fatal(err)
	}
	_, second, err := broker.BeginLogin(saml.RequestContext{Host: "sp.example"})
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Errorf("two logins share the correlation key %q", first)
	}
}
