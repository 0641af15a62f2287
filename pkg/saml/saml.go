// Package saml is the boundary to the external identity provider. It
// issues authentication requests and verifies the assertions posted back
// by the IdP, surfacing the asserted identity as a typed attribute bag.
package saml

import (
	"errors"
	"net/url"
)

// ErrNoUsername is returned when an assertion carries no usable username attribute.
var ErrNoUsername = errors.New("saml: no username attribute in assertion")

// UsernameAttribute is the distinguished attribute the account identity is taken from.
const UsernameAttribute = "username"

// RequestContext captures the inbound request an authentication attempt
// originates from, plus the request ID correlating it with the eventual
// assertion. The broker records it when a login starts and hands it back
// to the verifier when the callback arrives.
type RequestContext struct {
	Host      string
	Path      string
	Params    url.Values
	RequestID string
}

// Attributes maps an attribute name to its ordered values. A federated
// assertion may carry multiple values per attribute.
type Attributes map[string][]string

// First returns the first value of the named attribute, or "" if absent.
func (a Attributes) First(name string) string {
	if values, ok := a[name]; ok && len(values) > 0 {
		return values[0]
	}
	return ""
}

// Username returns the account identity asserted by the IdP.
func (a Attributes) Username() (string, error) {
	username := a.First(UsernameAttribute)
	if username == "" {
		return "", ErrNoUsername
	}
	return username, nil
}

// Verifier brokers the wire-level SAML exchange with the IdP.
//
// Initiate builds a login request for the IdP and returns the URL the
// client must be redirected to, together with the unique request ID the
// eventual assertion will reference.
//
// Verify checks a raw assertion (the SAMLResponse form value as posted by
// the IdP) against the recorded request context and returns the asserted
// attributes.
type Verifier interface {
	Initiate(rc RequestContext) (redirectURL string, requestID string, err error)
	Verify(rc RequestContext, rawAssertion []byte) (Attributes, error)
}
