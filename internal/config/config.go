// Package config loads the service configuration: defaults, then a YAML file, then
// COGNITO_* environment overrides, then validation.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix starts every override variable. Nested keys are separated by a double
// underscore: COGNITO_ENGINE__MAX_ITERATIONS=5.
const EnvPrefix = "COGNITO_"

// Config is the whole service configuration.
type Config struct {
	LogLevel     string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	MaxInputSize int    `yaml:"max_input_size" mapstructure:"max_input_size" validate:"gte=0"`

	Engine      EngineConfig      `yaml:"engine" mapstructure:"engine"`
	Policy      PolicyConfig      `yaml:"policy" mapstructure:"policy"`
	Speculative SpeculativeConfig `yaml:"speculative" mapstructure:"speculative"`
	Oracle      OracleConfig      `yaml:"oracle" mapstructure:"oracle"`
	Signer      SignerConfig      `yaml:"signer" mapstructure:"signer"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Sinks       SinkConfig        `yaml:"sinks" mapstructure:"sinks"`
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Tools       ToolsConfig       `yaml:"tools" mapstructure:"tools"`
}

type EngineConfig struct {
	MaxIterations int      `yaml:"max_iterations" mapstructure:"max_iterations" validate:"gte=1,lte=20"`
	MaxSteps      int      `yaml:"max_steps" mapstructure:"max_steps" validate:"gte=8,lte=1024"`
	CriticalTools []string `yaml:"critical_tools" mapstructure:"critical_tools"`
}

type PolicyConfig struct {
	SensitiveTopics []string `yaml:"sensitive_topics" mapstructure:"sensitive_topics"`
	StrongModel     string   `yaml:"strong_model" mapstructure:"strong_model" validate:"required"`
	DefaultModel    string   `yaml:"default_model" mapstructure:"default_model" validate:"required"`
	ReputationFloor float64  `yaml:"reputation_floor" mapstructure:"reputation_floor" validate:"gte=0,lte=1"`
}

type SpeculativeConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	Workers int  `yaml:"workers" mapstructure:"workers" validate:"gte=1,lte=64"`
}

type OracleConfig struct {
	// Provider is keyword (offline), openai or anthropic.
	Provider  string  `yaml:"provider" mapstructure:"provider" validate:"oneof=keyword openai anthropic"`
	Model     string  `yaml:"model" mapstructure:"model"`
	APIKey    string  `yaml:"api_key" mapstructure:"api_key" validate:"required_unless=Provider keyword"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit" validate:"gte=0"`
	Burst     int     `yaml:"burst" mapstructure:"burst" validate:"gte=0"`
}

type SignerConfig struct {
	Seed string `yaml:"seed" mapstructure:"seed" validate:"required"`
	DID  string `yaml:"did" mapstructure:"did" validate:"required,startswith=did:"`
}

type StoreConfig struct {
	// Backend is memory, file, redis or badger.
	Backend   string        `yaml:"backend" mapstructure:"backend" validate:"oneof=memory file redis badger"`
	Path      string        `yaml:"path" mapstructure:"path" validate:"required_if=Backend badger"`
	RedisAddr string        `yaml:"redis_addr" mapstructure:"redis_addr" validate:"required_if=Backend redis"`
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl" validate:"gte=0"`
	// EncryptionKey is a hex encoded 32-byte key. Empty disables sealing.
	EncryptionKey string `yaml:"encryption_key" mapstructure:"encryption_key" validate:"omitempty,hexadecimal,len=64"`
	Redact        bool   `yaml:"redact" mapstructure:"redact"`
}

type SinkConfig struct {
	// Backend is memory or sqlite.
	Backend string `yaml:"backend" mapstructure:"backend" validate:"oneof=memory sqlite"`
	Path    string `yaml:"path" mapstructure:"path" validate:"required_if=Backend sqlite"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr" validate:"required,hostname_port"`
}

type ToolsConfig struct {
	// File lists extra process tools (see pkg/adapters/process).
	File string `yaml:"file" mapstructure:"file"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		LogLevel:     "info",
		MaxInputSize: 4096,
		Engine: EngineConfig{
			MaxIterations: 3,
			MaxSteps:      64,
			CriticalTools: []string{"code_executor", "send_email", "delete_database_record"},
		},
		Policy: PolicyConfig{
			SensitiveTopics: []string{"investment"},
			StrongModel:     "gpt-4o",
			DefaultModel:    "gpt-3.5-turbo",
			ReputationFloor: 0.3,
		},
		Speculative: SpeculativeConfig{Enabled: true, Workers: 4},
		Oracle:      OracleConfig{Provider: "keyword", Burst: 1},
		Signer:      SignerConfig{Seed: "cognito-dev-seed", DID: "did:cognito:local"},
		Store:       StoreConfig{Backend: "memory"},
		Sinks:       SinkConfig{Backend: "memory"},
		HTTP:        HTTPConfig{Addr: "127.0.0.1:8080"},
	}
}

// Load reads path (optional) and the process environment.
func Load(path string) (*Config, error) {
	return LoadFrom(path, os.Environ())
}

// LoadFrom is Load with an explicit environment, as returned by os.Environ.
func LoadFrom(path string, environ []string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(cfg, environ); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv folds COGNITO_* variables into cfg, one variable at a time so that a
// list override replaces the list instead of merging with it.
func applyEnv(cfg *Config, environ []string) error {
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		path := strings.Split(strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), "__")

		var node any = value
		for i := len(path) - 1; i >= 0; i-- {
			node = map[string]any{path[i]: node}
		}

		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			ZeroFields:       true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		})
		if err != nil {
			return err
		}
		if err := dec.Decode(node); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field constraint and reports all failures at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// Key decodes the store encryption key, or returns nil when sealing is off.
func (s StoreConfig) Key() ([]byte, error) {
	if s.EncryptionKey == "" {
		return nil, nil
	}
	return hex.DecodeString(s.EncryptionKey)
}
