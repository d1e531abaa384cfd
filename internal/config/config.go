// Package config loads the YAML settings the CLI and HTTP server run with.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrConfiguration = errors.New("configuration error")

var (
	OracleProviders    = []string{"openai", "anthropic", "google"}
	EmbeddingProviders = []string{"openai", "google"}
	StoreProviders     = []string{"file", "sqlite", "redis"}
	IndexProviders     = []string{"memory", "postgres", "qdrant"}
)

type Config struct {
	ClientID      string              `yaml:"client_id"`
	RecordingsDir string              `yaml:"recordings_dir"`
	DataDir       string              `yaml:"data_dir"`
	Oracle        OracleConfig        `yaml:"oracle"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Store         StoreConfig         `yaml:"store"`
	Index         IndexConfig         `yaml:"index"`
	Compliance    ComplianceConfig    `yaml:"compliance"`
	Server        ServerConfig        `yaml:"server"`
	Watch         WatchConfig         `yaml:"watch"`
}

type OracleConfig struct {
	Provider  string        `yaml:"provider"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	Retries   int           `yaml:"retries"`
	Backoff   time.Duration `yaml:"backoff"`
	RateLimit float64       `yaml:"rate_limit"`
	Burst     int           `yaml:"burst"`
	Workers   int           `yaml:"workers"`
}

type TranscriptionConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
}

type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	BatchSize int    `yaml:"batch_size"`
}

type StoreConfig struct {
	Provider string `yaml:"provider"`
	Location string `yaml:"location"`
}

type IndexConfig struct {
	Provider   string `yaml:"provider"`
	Location   string `yaml:"location"`
	Collection string `yaml:"collection"`
	APIKeyEnv  string `yaml:"api_key_env"`
}

type ComplianceConfig struct {
	RequiredPhrases  []string `yaml:"required_phrases"`
	ForbiddenPhrases []string `yaml:"forbidden_phrases"`
}

type ServerConfig struct {
	Address string `yaml:"address"`
}

type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Default is the configuration used for anything a file leaves unset.
func Default() Config {
	return Config{
		ClientID:      "client_123",
		RecordingsDir: "recordings",
		DataDir:       "data",
		Oracle: OracleConfig{
			Provider:  "openai",
			APIKeyEnv: "OPENAI_API_KEY",
			Model:     "gpt-4.1-mini",
			Timeout:   2 * time.Minute,
			Backoff:   time.Second,
			Burst:     1,
			Workers:   1,
		},
		Transcription: TranscriptionConfig{
			APIKeyEnv: "OPENAI_API_KEY",
			Model:     "whisper-1",
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			APIKeyEnv: "OPENAI_API_KEY",
			Model:     "text-embedding-3-small",
			BatchSize: 32,
		},
		Store: StoreConfig{
			Provider: "file",
		},
		Index: IndexConfig{
			Provider:   "memory",
			Collection: "calls",
		},
		Compliance: ComplianceConfig{
			RequiredPhrases:  []string{},
			ForbiddenPhrases: []string{},
		},
		Server: ServerConfig{
			Address: ":8080",
		},
		Watch: WatchConfig{
			Debounce: 2 * time.Second,
		},
	}
}

// Load reads the YAML file at path over the defaults and validates the
// result. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if len(path) > 0 {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("%w: failed to read config: %v", ErrConfiguration, err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
		}
	}

	if cfg.Compliance.RequiredPhrases == nil {
		cfg.Compliance.RequiredPhrases = []string{}
	}
	if cfg.Compliance.ForbiddenPhrases == nil {
		cfg.Compliance.ForbiddenPhrases = []string{}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks structure only. Credentials are resolved by APIKey when a
// command actually needs them.
func (c Config) Validate() error {
	var problems []string

	check := func(name, value string, allowed []string) {
		for _, a := range allowed {
			if value == a {
				return
			}
		}
		problems = append(problems, fmt.Sprintf("%s %q is not one of %s", name, value, strings.Join(allowed, ", ")))
	}

	check("oracle.provider", c.Oracle.Provider, OracleProviders)
	check("embedding.provider", c.Embedding.Provider, EmbeddingProviders)
	check("store.provider", c.Store.Provider, StoreProviders)
	check("index.provider", c.Index.Provider, IndexProviders)

	if len(strings.TrimSpace(c.ClientID)) == 0 {
		problems = append(problems, "client_id is empty")
	}
	if len(c.DataDir) == 0 {
		problems = append(problems, "data_dir is empty")
	}
	if c.Oracle.Timeout <= 0 {
		problems = append(problems, "oracle.timeout must be positive")
	}
	if c.Oracle.Retries < 0 {
		problems = append(problems, "oracle.retries must not be negative")
	}
	if c.Oracle.RateLimit < 0 {
		problems = append(problems, "oracle.rate_limit must not be negative")
	}
	if c.Oracle.Workers < 1 {
		problems = append(problems, "oracle.workers must be at least 1")
	}
	if c.Embedding.BatchSize < 1 {
		problems = append(problems, "embedding.batch_size must be at least 1")
	}
	if (c.Index.Provider == "postgres" || c.Index.Provider == "qdrant") && len(c.Index.Location) == 0 {
		problems = append(problems, fmt.Sprintf("index.location is required for %s", c.Index.Provider))
	}
	if c.Store.Provider == "redis" && len(c.Store.Location) == 0 {
		problems = append(problems, "store.location is required for redis")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(problems, "; "))
	}

	return nil
}

// APIKey reads the credential named by env. A missing or blank variable is a
// configuration error.
func APIKey(env string) (string, error) {
	if len(env) == 0 {
		return "", fmt.Errorf("%w: no api key environment variable configured", ErrConfiguration)
	}

	key := strings.TrimSpace(os.Getenv(env))
	if len(key) == 0 {
		return "", fmt.Errorf("%w: environment variable %s is not set", ErrConfiguration, env)
	}

	return key, nil
}

// StoreLocation is where the configured record store keeps its data.
func (c Config) StoreLocation() string {
	if len(c.Store.Location) > 0 {
		return c.Store.Location
	}
	if c.Store.Provider == "sqlite" {
		return filepath.Join(c.DataDir, "calls.db")
	}
	return filepath.Join(c.DataDir, "calls")
}

// IndexLocation is where the configured vector index lives.
func (c Config) IndexLocation() string {
	if len(c.Index.Location) > 0 || c.Index.Provider != "memory" {
		return c.Index.Location
	}
	return filepath.Join(c.DataDir, "index")
}
