// Package session binds the wire-level session cookie to the broker's
// correlation table and owns the sliding-expiry policy.
package session

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pixbin/pixbin/pkg/authn"
	"github.com/pixbin/pixbin/pkg/saml"
)

const (
	// CookieName carries the session token.
	CookieName = "sp_saml_id"
	// CookieTTL is deliberately short to force regular re-authentication.
	CookieTTL = 200 * time.Second
)

type Status int

const (
	// StatusAdmitted means the token resolved to a valid assertion.
	StatusAdmitted Status = iota
	// StatusRedirect means a new login was started; redirect the client.
	StatusRedirect
	// StatusDenied means no valid token and redirects were not allowed.
	StatusDenied
)

// Result is the outcome of authenticating one request. Unauthenticated
// access is the expected common case, so it is modeled here rather than
// as an error.
type Result struct {
	Status  Status
	Account string
	// Token must be (re)armed as the session cookie: on admission it is
	// the refreshed form of the presented token, on redirect it is the
	// key of the freshly started login.
	Token       string
	RedirectURL string
}

type Gateway struct {
	broker     *authn.Broker
	tokens     TokenPolicy
	cookieName string
	cookieTTL  time.Duration
}

func NewGateway(broker *authn.Broker, tokens TokenPolicy) *Gateway {
	if tokens == nil {
		tokens = PlainTokens{}
	}
	return &Gateway{
		broker:     broker,
		tokens:     tokens,
		cookieName: CookieName,
		cookieTTL:  CookieTTL,
	}
}

// Authenticate resolves the presented token. A usable token admits the
// request and re-arms the sliding expiry. Otherwise a new login is
// started when allowRedirect is set, or the request is denied so the
// caller can render a login page instead of bouncing an upload into a
// redirect loop.
func (g *Gateway) Authenticate(rc saml.RequestContext, token string, allowRedirect bool) (*Result, error) {
	if token != "" {
		if account, fresh, ok := g.admit(token); ok {
			return &Result{Status: StatusAdmitted, Account: account, Token: fresh}, nil
		}
	}

	if !allowRedirect {
		return &Result{Status: StatusDenied}, nil
	}

	redirectURL, key, err := g.broker.BeginLogin(rc)
	if err != nil {
		return nil, fmt.Errorf("starting login: %w", err)
	}
	fresh, err := g.tokens.Mint(key)
	if err != nil {
		return nil, err
	}
	return &Result{Status: StatusRedirect, Token: fresh, RedirectURL: redirectURL}, nil
}

func (g *Gateway) admit(token string) (string, string, bool) {
	key, err := g.tokens.Validate(token)
	if err != nil {
		slog.Debug("rejecting session token", "error", err)
		return "", "", false
	}

	attrs, ok := g.broker.Resolve(key)
	if !ok {
		return "", "", false
	}

	account, err := attrs.Username()
	if err != nil {
		slog.Error("session has no usable identity", "key", key, "error", err)
		return "", "", false
	}

	if err := g.broker.Touch(key); err != nil {
		// expired between resolve and touch
		return "", "", false
	}

	fresh, err := g.tokens.Mint(key)
	if err != nil {
		slog.Error("unable to refresh session token", "error", err)
		return "", "", false
	}
	return account, fresh, true
}

// CompleteLogin feeds the IdP callback into the broker, translating the
// cookie token back to the correlation key first.
func (g *Gateway) CompleteLogin(token string, rawAssertion []byte) (saml.Attributes, error) {
	key, err := g.tokens.Validate(token)
	if err != nil {
		return nil, authn.ErrUnknownRequest
	}
	return g.broker.CompleteLogin(key, rawAssertion)
}

// Cookie builds the session cookie for a token value. The short Max-Age
// combined with re-setting the cookie on every admitted access yields the
// sliding expiry.
func (g *Gateway) Cookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:   g.cookieName,
		Value:  token,
		Path:   "/",
		MaxAge: int(g.cookieTTL.Seconds()),
	}
}
