// Package config loads the service configuration from a YAML file with
// environment overrides for the common deployment knobs.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pixbin/pixbin/pkg/saml"
	"github.com/pixbin/pixbin/pkg/util"
	"gopkg.in/yaml.v3"
)

const (
	VerifierStrict    = "strict"
	VerifierAcceptAll = "insecure-accept-all"

	TokenPolicyPlain  = "plain"
	TokenPolicySigned = "signed"
)

type Config struct {
	Address string `yaml:"address"`
	DataDir string `yaml:"data_dir" validate:"required"`

	// Verifier selects how assertions are checked. The accept-all mode
	// reproduces demo IdP setups and must be opted into explicitly.
	Verifier string `yaml:"verifier" validate:"oneof=strict insecure-accept-all"`

	// TokenPolicy selects the session token format. The plain policy is
	// the historical contract: the raw correlation key, forgeable by
	// anyone who learns it.
	TokenPolicy string `yaml:"token_policy" validate:"oneof=plain signed"`
	// TokenSecret is the base64 HMAC secret for the signed policy.
	TokenSecret string `yaml:"token_secret" validate:"required_if=TokenPolicy signed"`

	MaxSessions       int `yaml:"max_sessions" validate:"min=0"`
	PendingTTLSeconds int `yaml:"pending_ttl_seconds" validate:"min=0"`

	SAML saml.Config `yaml:"saml" validate:"required"`
}

// Default mirrors the development layout: loopback addresses for both
// parties and an accounts directory next to the binary.
func Default() *Config {
	return &Config{
		Address:     util.GetEnv("PIXBIN_ADDRESS", "127.0.0.1:8081"),
		DataDir:     util.GetEnv("PIXBIN_DATA_DIR", "accounts"),
		Verifier:    VerifierStrict,
		TokenPolicy: TokenPolicyPlain,
		SAML: saml.Config{
			SPEntityID:  "http://127.0.0.1:8081",
			ACSURL:      "http://127.0.0.1:8081/identity",
			IDPEntityID: "http://127.0.0.1:8082",
			IDPSSOURL:   "http://127.0.0.1:8082/login",
		},
	}
}

// Load reads and validates the configuration file, falling back to the
// defaults when no file exists at the path.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %q: %w", path, err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
