package saml

import (
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"log/slog"
	"net/url"

	crewjam "github.com/crewjam/saml"
)

// ServiceProviderVerifier is the production Verifier. It delegates
// AuthnRequest construction, response parsing and signature verification
// to crewjam/saml.
type ServiceProviderVerifier struct {
	sp *crewjam.ServiceProvider
}

var _ Verifier = (*ServiceProviderVerifier)(nil)

func NewServiceProviderVerifier(cfg Config) (*ServiceProviderVerifier, error) {
	acsURL, err := url.Parse(cfg.ACSURL)
	if err != nil {
		return nil, fmt.Errorf("invalid acs_url: %w", err)
	}

	idpMetadata := &crewjam.EntityDescriptor{
		EntityID: cfg.IDPEntityID,
		IDPSSODescriptors: []crewjam.IDPSSODescriptor{
			{
				SingleSignOnServices: []crewjam.Endpoint{
					{
						Binding:  crewjam.HTTPRedirectBinding,
						Location: cfg.IDPSSOURL,
					},
				},
			},
		},
	}

	if cfg.IDPCertificate != "" {
		block, _ := pem.Decode([]byte(cfg.IDPCertificate))
		if block == nil {
			return nil, fmt.Errorf("idp_certificate is not valid PEM")
		}
		idpMetadata.IDPSSODescriptors[0].KeyDescriptors = []crewjam.KeyDescriptor{
			{
				Use: "signing",
				KeyInfo: crewjam.KeyInfo{
					X509Data: crewjam.X509Data{
						X509Certificates: []crewjam.X509Certificate{
							{Data: base64.StdEncoding.EncodeToString(block.Bytes)},
						},
					},
				},
			},
		}
	}

	sp := &crewjam.ServiceProvider{
		EntityID:    cfg.SPEntityID,
		AcsURL:      *acsURL,
		MetadataURL: *acsURL,
		IDPMetadata: idpMetadata,
	}

	return &ServiceProviderVerifier{sp: sp}, nil
}

func (v *ServiceProviderVerifier) Initiate(rc RequestContext) (string, string, error) {
	req, err := v.sp.MakeAuthenticationRequest(
		v.sp.GetSSOBindingLocation(crewjam.HTTPRedirectBinding),
		crewjam.HTTPRedirectBinding,
		crewjam.HTTPPostBinding,
	)
	if err != nil {
		return "", "", fmt.Errorf("creating authn request: %w", err)
	}

	redirectURL, err := req.Redirect("", v.sp)
	if err != nil {
		return "", "", fmt.Errorf("encoding authn request: %w", err)
	}

	slog.Debug("initiated SAML login", "request_id", req.ID, "sso_url", v.sp.GetSSOBindingLocation(crewjam.HTTPRedirectBinding))

	return redirectURL.String(), req.ID, nil
}

func (v *ServiceProviderVerifier) Verify(rc RequestContext, rawAssertion []byte) (Attributes, error) {
	responseXML, err := base64.StdEncoding.DecodeString(string(rawAssertion))
	if err != nil {
		return nil, fmt.Errorf("decoding SAMLResponse: %w", err)
	}

	assertion, err := v.sp.ParseXMLResponse(responseXML, []string{rc.RequestID})
	if err != nil {
		return nil, fmt.Errorf("verifying assertion: %w", err)
	}

	return extractAttributes(assertion), nil
}

// extractAttributes flattens the assertion's attribute statements into an
// ordered multi-value map, keyed by attribute Name and, where present, by
// FriendlyName as well.
func extractAttributes(assertion *crewjam.Assertion) Attributes {
	attrs := Attributes{}
	for _, stmt := range assertion.AttributeStatements {
		for _, attr := range stmt.Attributes {
			values := make([]string, 0, len(attr.Values))
			for _, value := range attr.Values {
				values = append(values, value.Value)
			}
			if attr.Name != "" {
				attrs[attr.Name] = append(attrs[attr.Name], values...)
			}
			if attr.FriendlyName != "" && attr.FriendlyName != attr.Name {
				attrs[attr.FriendlyName] = append(attrs[attr.FriendlyName], values...)
			}
		}
	}
	return attrs
}
