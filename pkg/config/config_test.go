package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleConfig = `
app:
  name: auth-service
  env: default
jwt:
  secret: ${TEST_JWT_SECRET}
  expire: 3600
password:
  legacyKey: password123
auth:
  storeTimeout: 2s
`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TEST_JWT_SECRET", "from-env")
	t.Setenv("APP_ENV", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.JWT.Secret != "from-env" {
		t.Errorf("JWT.Secret = %q, want placeholder resolved", cfg.JWT.Secret)
	}
	if cfg.JWT.SessionTTL() != time.Hour {
		t.Errorf("SessionTTL() = %v", cfg.JWT.SessionTTL())
	}
	if cfg.JWT.RefreshTTL() != 7*24*time.Hour {
		t.Errorf("RefreshTTL() = %v, want default", cfg.JWT.RefreshTTL())
	}
	if cfg.JWT.Algorithm != "HS512" {
		t.Errorf("Algorithm = %q", cfg.JWT.Algorithm)
	}
	if cfg.Password.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d", cfg.Password.BcryptCost)
	}
	if cfg.Auth.StoreTimeout != 2*time.Second {
		t.Errorf("StoreTimeout = %v", cfg.Auth.StoreTimeout)
	}
	if cfg.Audit.Workers != 2 || cfg.Audit.QueueSize != 100 {
		t.Errorf("Audit = %+v", cfg.Audit)
	}
}

func TestValidateRequiresSecret(t *testing.T) {
	cfg := &Config{
		JWT:   JWTConfig{Expire: 1, RefreshExpire: 1},
		Audit: AuditConfig{Workers: 1, QueueSize: 1},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() should fail without jwt.secret")
	}
	cfg.JWT.Secret = "${UNSET_SECRET}"
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() should fail with an unresolved placeholder")
	}
	cfg.JWT.Secret = "s"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

const gatewayConfig = `
jwt:
  secret: s
password:
  legacyKey: ${UNSET_LEGACY_KEY}
gateway:
  services:
    - name: auth-service
      basePath: auth
      address: 127.0.0.1:8081
      public:
        - path: /login
          methods: [POST]
`

func TestLoadGatewayServices(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(gatewayConfig), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("APP_ENV", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Password.LegacyKey != "" {
		t.Errorf("LegacyKey = %q, want unresolved placeholder dropped", cfg.Password.LegacyKey)
	}
	if cfg.Gateway.SyncInterval != 15*time.Second {
		t.Errorf("SyncInterval = %v", cfg.Gateway.SyncInterval)
	}
	if len(cfg.Gateway.Services) != 1 {
		t.Fatalf("services = %+v", cfg.Gateway.Services)
	}
	svc := cfg.Gateway.Services[0]
	if svc.BasePath != "auth" || len(svc.Public) != 1 || svc.Public[0].Methods[0] != "POST" {
		t.Errorf("service = %+v", svc)
	}
}
