package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Address != ":8600" {
		t.Errorf("expected default address :8600, got %s", cfg.Server.Address)
	}
	if cfg.Services.GuardrailURL != "http://localhost:8581/pty/semantic-guardrail/v1.1/score" {
		t.Errorf("unexpected guardrail URL: %s", cfg.Services.GuardrailURL)
	}
	if cfg.Services.DiscoveryEndpoint != "http://localhost:8580/pty/data-discovery/v1.1/classify" {
		t.Errorf("unexpected discovery endpoint: %s", cfg.Services.DiscoveryEndpoint)
	}
	if cfg.Services.HealthTimeout != 2*time.Second {
		t.Errorf("unexpected health timeout: %v", cfg.Services.HealthTimeout)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trial.yaml")
	content := `
server:
  address: ":9000"
services:
  guardrail_url: "http://guardrail:8581/pty/semantic-guardrail/v1.1/score"
  discovery_endpoint: "http://classify:8580/pty/data-discovery/v1.1/classify"
  guardrail_timeout: 10s
  sanitize_timeout: 20s
  health_timeout: 1s
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Address != ":9000" {
		t.Errorf("expected :9000, got %s", cfg.Server.Address)
	}
	if cfg.Services.GuardrailTimeout != 10*time.Second {
		t.Errorf("expected 10s guardrail timeout, got %v", cfg.Services.GuardrailTimeout)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug level, got %s", cfg.Logging.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SEMANTIC_GUARDRAIL_PORT", "9581")
	t.Setenv("CLASSIFICATION_SERVICE_PORT", "9580")
	t.Setenv("TRIAL_LOG_LEVEL", "warn")
	t.Setenv("SHARED_TRIAL_MODE", "TRUE")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Services.GuardrailURL != "http://localhost:9581/pty/semantic-guardrail/v1.1/score" {
		t.Errorf("port override not applied: %s", cfg.Services.GuardrailURL)
	}
	if cfg.Services.DiscoveryEndpoint != "http://localhost:9580/pty/data-discovery/v1.1/classify" {
		t.Errorf("port override not applied: %s", cfg.Services.DiscoveryEndpoint)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("log level override not applied: %s", cfg.Logging.Level)
	}
	if !cfg.SharedTrialMode {
		t.Error("shared trial mode override not applied")
	}
}

func TestFullURLOverrideWinsOverPort(t *testing.T) {
	t.Setenv("SEMANTIC_GUARDRAIL_PORT", "9581")
	t.Setenv("TRIAL_GUARDRAIL_URL", "http://remote:8581/pty/semantic-guardrail/v1.1/score")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Services.GuardrailURL != "http://remote:8581/pty/semantic-guardrail/v1.1/score" {
		t.Errorf("full URL override should win, got %s", cfg.Services.GuardrailURL)
	}
}

func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv("DEV_EDITION_EMAIL", "dev@example.com")
	t.Setenv("DEV_EDITION_PASSWORD", "secret")
	t.Setenv("DEV_EDITION_API_KEY", "key-123")

	creds := CredentialsFromEnv()
	if !creds.Complete() {
		t.Fatal("expected complete credentials")
	}
	if len(creds.Missing()) != 0 {
		t.Errorf("expected no missing credentials, got %v", creds.Missing())
	}
}

func TestCredentialsMissing(t *testing.T) {
	t.Setenv("DEV_EDITION_EMAIL", "dev@example.com")
	t.Setenv("DEV_EDITION_PASSWORD", "")
	t.Setenv("DEV_EDITION_API_KEY", "")

	creds := CredentialsFromEnv()
	if creds.Complete() {
		t.Fatal("expected incomplete credentials")
	}
	missing := creds.Missing()
	if len(missing) != 2 {
		t.Fatalf("expected 2 missing entries, got %v", missing)
	}
	if missing[0] != "DEV_EDITION_PASSWORD" || missing[1] != "DEV_EDITION_API_KEY" {
		t.Errorf("unexpected missing list: %v", missing)
	}
}

func TestValidateRejectsBadURL(t *testing.T) {
	cfg := Default()
	cfg.Services.GuardrailURL = "not a url"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for malformed URL")
	}

	cfg = Default()
	cfg.Services.HealthTimeout = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for zero timeout")
	}
}
