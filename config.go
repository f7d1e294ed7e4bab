package aistudio

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variable names for credential loading.
const (
	EnvEndpointURL = "AISTUDIO_URL"
	EnvAPIKey      = "AISTUDIO_KEY"
)

// Config holds the process configuration for constructing generators:
// the endpoint, the credential, and the retry policy tunables.
//
// The credential normally comes from the environment (or a .env file), not
// from the YAML file; LoadConfig fills any field left empty by the file from
// the environment.
type Config struct {
	EndpointURL string      `yaml:"endpoint_url"`
	APIKey      string      `yaml:"api_key"`
	Retry       RetryConfig `yaml:"retry"`
}

// Duration wraps time.Duration so YAML values like "500ms" or "2m" decode
// with time.ParseDuration semantics.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// RetryConfig is the YAML shape of a RetryPolicy.
type RetryConfig struct {
	MaxAttempts      int      `yaml:"max_attempts"`
	MaxElapsed       Duration `yaml:"max_elapsed"`
	TransportDelay   Duration `yaml:"transport_delay"`
	UnavailableDelay Duration `yaml:"unavailable_delay"`
}

// RetryPolicy converts the config shape into the transport's policy.
func (c *Config) RetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:      c.Retry.MaxAttempts,
		MaxElapsed:       time.Duration(c.Retry.MaxElapsed),
		TransportDelay:   time.Duration(c.Retry.TransportDelay),
		UnavailableDelay: time.Duration(c.Retry.UnavailableDelay),
	}
}

// Validate checks that the config can construct a client.
func (c *Config) Validate() error {
	if c.EndpointURL == "" {
		return &ValidationError{Field: "endpoint_url", Reason: "endpoint URL is required", Err: ErrInvalidRequest}
	}
	if c.APIKey == "" {
		return &ValidationError{Field: "api_key", Reason: "API key is required", Err: ErrInvalidAPIKey}
	}
	return nil
}

// LoadConfig loads configuration from an optional YAML file and the
// environment. A .env file found in the working directory or any parent is
// loaded first; environment variables fill any field the file leaves empty.
// Pass an empty path to configure from the environment alone.
func LoadConfig(path string) (*Config, error) {
	LoadEnv()

	cfg := &Config{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if cfg.EndpointURL == "" {
		cfg.EndpointURL = os.Getenv(EnvEndpointURL)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(EnvAPIKey)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadEnv searches for a .env file starting from the current directory and
// walking up the directory tree, loading the first one found. If none is
// found it silently continues with the process environment.
func LoadEnv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}

	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}
