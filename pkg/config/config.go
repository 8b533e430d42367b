// Package config provides configuration structures and loading logic for
// the Trial Center harness.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults for the bundled Developer Edition docker services.
const (
	defaultGuardrailPort      = "8581"
	defaultClassificationPort = "8580"
)

// Config holds the global configuration for the harness.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Services  ServicesConfig  `yaml:"services"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`

	// SharedTrialMode flags a multi-tenant demo deployment; front ends
	// surface a disclaimer and no real data should be submitted.
	SharedTrialMode bool `yaml:"shared_trial_mode"`

	// Credentials are only ever read from the environment, never from
	// the config file, so they cannot end up in checked-in YAML.
	Credentials Credentials `yaml:"-"`
}

// ServerConfig holds configuration for the HTTP front end.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// ServicesConfig points at the two remote Developer Edition services.
type ServicesConfig struct {
	GuardrailURL      string        `yaml:"guardrail_url"`
	DiscoveryEndpoint string        `yaml:"discovery_endpoint"`
	GuardrailTimeout  time.Duration `yaml:"guardrail_timeout"`
	SanitizeTimeout   time.Duration `yaml:"sanitize_timeout"`
	HealthTimeout     time.Duration `yaml:"health_timeout"`
}

// TelemetryConfig holds configuration for OpenTelemetry.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
}

// LoggingConfig holds configuration for logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Credentials carries the three Developer Edition credential values.
// Absence disables protect/unprotect only; discovery, guardrail and
// redaction work without them.
type Credentials struct {
	Email    string
	Password string
	APIKey   string
}

// Complete reports whether all three credential values are present.
func (c Credentials) Complete() bool {
	return c.Email != "" && c.Password != "" && c.APIKey != ""
}

// Missing lists the names of unset credential environment variables.
func (c Credentials) Missing() []string {
	var missing []string
	if c.Email == "" {
		missing = append(missing, "DEV_EDITION_EMAIL")
	}
	if c.Password == "" {
		missing = append(missing, "DEV_EDITION_PASSWORD")
	}
	if c.APIKey == "" {
		missing = append(missing, "DEV_EDITION_API_KEY")
	}
	return missing
}

// Load reads configuration from an optional file and applies environment
// variable overrides. A .env file in the working directory is honoured
// first, matching the docker-compose workflow of the trial services.
func Load(path string) (*Config, error) {
	// Best-effort: load .env from current directory
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		//nolint:gosec // Config file path is controlled by the operator
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file or overrides are
// present: both services on localhost at their docker-compose ports.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address: ":8600",
		},
		Services: ServicesConfig{
			GuardrailURL:      guardrailURLForPort(defaultGuardrailPort),
			DiscoveryEndpoint: discoveryEndpointForPort(defaultClassificationPort),
			GuardrailTimeout:  30 * time.Second,
			SanitizeTimeout:   60 * time.Second,
			HealthTimeout:     2 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func guardrailURLForPort(port string) string {
	return "http://localhost:" + port + "/pty/semantic-guardrail/v1.1/score"
}

func discoveryEndpointForPort(port string) string {
	return "http://localhost:" + port + "/pty/data-discovery/v1.1/classify"
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("TRIAL_CENTER_ADDR"); val != "" {
		cfg.Server.Address = val
	}

	// The launcher scripts export only the ports; URLs are derived.
	if val := os.Getenv("SEMANTIC_GUARDRAIL_PORT"); val != "" {
		cfg.Services.GuardrailURL = guardrailURLForPort(val)
	}
	if val := os.Getenv("CLASSIFICATION_SERVICE_PORT"); val != "" {
		cfg.Services.DiscoveryEndpoint = discoveryEndpointForPort(val)
	}

	// Full-URL overrides win over port-derived values.
	if val := os.Getenv("TRIAL_GUARDRAIL_URL"); val != "" {
		cfg.Services.GuardrailURL = val
	}
	if val := os.Getenv("TRIAL_DISCOVERY_ENDPOINT"); val != "" {
		cfg.Services.DiscoveryEndpoint = val
	}

	if val := os.Getenv("TRIAL_OTLP_ENDPOINT"); val != "" {
		cfg.Telemetry.OTLPEndpoint = val
	}
	if val := os.Getenv("TRIAL_OTLP_INSECURE"); val == "true" {
		cfg.Telemetry.Insecure = true
	}

	if val := os.Getenv("TRIAL_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}

	if val := os.Getenv("SHARED_TRIAL_MODE"); strings.EqualFold(val, "true") {
		cfg.SharedTrialMode = true
	}

	cfg.Credentials = CredentialsFromEnv()
}

// CredentialsFromEnv reads the three Developer Edition credential values.
func CredentialsFromEnv() Credentials {
	return Credentials{
		Email:    strings.TrimSpace(os.Getenv("DEV_EDITION_EMAIL")),
		Password: os.Getenv("DEV_EDITION_PASSWORD"),
		APIKey:   strings.TrimSpace(os.Getenv("DEV_EDITION_API_KEY")),
	}
}

// Validate checks the configuration for coherence.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	for name, raw := range map[string]string{
		"services.guardrail_url":      c.Services.GuardrailURL,
		"services.discovery_endpoint": c.Services.DiscoveryEndpoint,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s: invalid URL %q", name, raw)
		}
	}
	if c.Services.GuardrailTimeout <= 0 {
		return fmt.Errorf("services.guardrail_timeout must be positive")
	}
	if c.Services.SanitizeTimeout <= 0 {
		return fmt.Errorf("services.sanitize_timeout must be positive")
	}
	if c.Services.HealthTimeout <= 0 {
		return fmt.Errorf("services.health_timeout must be positive")
	}
	return nil
}
