package saml

// Config describes both sides of the SAML exchange. Certificates are
// optional: a demo IdP without published signing keys can only be used
// with the insecure accept-all verifier.
type Config struct {
	SPEntityID     string `yaml:"sp_entity_id" validate:"required"`
	ACSURL         string `yaml:"acs_url" validate:"required,url"`
	IDPEntityID    string `yaml:"idp_entity_id" validate:"required"`
	IDPSSOURL      string `yaml:"idp_sso_url" validate:"required,url"`
	IDPCertificate string `yaml:"idp_certificate"` // PEM encoded signing certificate
}
