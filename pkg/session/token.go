package session

import (
	"fmt"
	"log/slog"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/pixbin/pixbin/pkg/util"
)

// TokenPolicy translates between the wire-level cookie value and the
// broker's correlation key. It is the seam where a hardened token format
// can replace the historical plain one without touching the broker.
type TokenPolicy interface {
	// Mint produces the cookie value for a correlation key.
	Mint(key string) (string, error)
	// Validate recovers the correlation key from a cookie value.
	Validate(token string) (string, error)
}

// PlainTokens is the faithful legacy policy: the cookie value IS the
// correlation key, carried verbatim with no cryptographic protection.
// Anyone who observes or guesses a key can impersonate that session.
type PlainTokens struct{}

func (PlainTokens) Mint(key string) (string, error) {
	return key, nil
}

func (PlainTokens) Validate(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("session: empty token")
	}
	return token, nil
}

// SignedTokens wraps the correlation key in a compact HS256 JWS so a
// tampered or fabricated cookie is rejected before it ever reaches the
// correlation table.
type SignedTokens struct {
	signingKey jwk.Key
}

func NewSignedTokens(secret []byte) (*SignedTokens, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("session: signing secret must be at least 32 bytes")
	}
	signingKey, err := jwk.FromRaw(secret)
	if err != nil {
		return nil, fmt.Errorf("session: building signing key: %w", err)
	}
	return &SignedTokens{signingKey: signingKey}, nil
}

func (p *SignedTokens) Mint(key string) (string, error) {
	signed, err := jws.Sign([]byte(key), jws.WithKey(jwa.HS256, p.signingKey))
	if err != nil {
		return "", fmt.Errorf("session: signing token: %w", err)
	}
	slog.Debug("minted signed session token", "token", util.JWSToText(string(signed)))
	return string(signed), nil
}

func (p *SignedTokens) Validate(token string) (string, error) {
	payload, err := jws.Verify([]byte(token), jws.WithKey(jwa.HS256, p.signingKey))
	if err != nil {
		return "", fmt.Errorf("session: invalid token signature: %w", err)
	}
	return string(payload), nil
}
