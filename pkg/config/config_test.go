package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pixbin/pixbin/pkg/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Verifier != config.VerifierStrict {
		t.Errorf("default verifier %q, want strict", cfg.Verifier)
	}
	if cfg.TokenPolicy != config.TokenPolicyPlain {
		t.Errorf("default token policy %q, want plain", cfg.TokenPolicy)
	}
	if cfg.Address == "" || cfg.DataDir == "" {
		t.Error("defaults must fill address and data dir")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pixbin.yaml")
	content := `
address: 0.0.0.0:9000
data_dir: /var/lib/pixbin
verifier: insecure-accept-all
saml:
  sp_entity_id: http://sp.example
  acs_url: http://sp.example/identity
  idp_entity_id: http://idp.example
  idp_sso_url: http://idp.example/login
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Address != "0.0.0.0:9000" {
		t.Errorf("address %q", cfg.Address)
	}
	if cfg.Verifier != config.VerifierAcceptAll {
		t.Errorf("verifier %q", cfg.Verifier)
	}
	if cfg.SAML.IDPSSOURL != "http://idp.example/login" {
		t.Errorf("idp sso url %q", cfg.SAML.IDPSSOURL)
	}
}

func TestLoadRejectsUnknownVerifier(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pixbin.yaml")
	content := `
data_dir: accounts
verifier: yolo
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := config.Load(path); err == nil {
		t.Error("unknown verifier value must be rejected")
	}
}

func TestSignedPolicyRequiresSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pixbin.yaml")
	content := `
data_dir: accounts
token_policy: signed
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := config.Load(path); err == nil {
		t.Error("signed policy without a secret must be rejected")
	}
}
