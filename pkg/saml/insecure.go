package saml

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"log/slog"

	crewjam "github.com/crewjam/saml"
)

// InsecureAcceptAllVerifier accepts every well-formed assertion without
// checking signatures, conditions or the request correlation. It exists to
// reproduce the behavior of demo IdP setups that publish no signing keys.
// Never use it outside development; it must be selected explicitly.
type InsecureAcceptAllVerifier struct {
	ServiceProviderVerifier
}

var _ Verifier = (*InsecureAcceptAllVerifier)(nil)

func NewInsecureAcceptAllVerifier(cfg Config) (*InsecureAcceptAllVerifier, error) {
	spv, err := NewServiceProviderVerifier(cfg)
	if err != nil {
		return nil, err
	}
	slog.Warn("SAML verification is DISABLED: every assertion will be accepted")
	return &InsecureAcceptAllVerifier{ServiceProviderVerifier: *spv}, nil
}

// Verify parses the response and extracts attributes, skipping all
// signature and validity checks.
func (v *InsecureAcceptAllVerifier) Verify(rc RequestContext, rawAssertion []byte) (Attributes, error) {
	responseXML, err := base64.StdEncoding.DecodeString(string(rawAssertion))
	if err != nil {
		return nil, fmt.Errorf("decoding SAMLResponse: %w", err)
	}

	var response crewjam.Response
	if err := xml.Unmarshal(responseXML, &response); err != nil {
		return nil, fmt.Errorf("parsing SAMLResponse: %w", err)
	}

	if response.Assertion == nil {
		return nil, fmt.Errorf("no assertion in SAMLResponse")
	}

	return extractAttributes(response.Assertion), nil
}
