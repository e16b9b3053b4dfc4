package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/cognito/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, config.Default().Validate())
}

func TestLoadFrom_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cognito.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
engine:
  max_iterations: 5
policy:
  sensitive_topics: [investment, crypto, options]
store:
  backend: redis
  redis_addr: localhost:6379
`), 0o644))

	cfg, err := config.LoadFrom(path, []string{
		"COGNITO_ENGINE__MAX_ITERATIONS=2",
		"COGNITO_POLICY__SENSITIVE_TOPICS=mortgage",
		"COGNITO_STORE__TTL=90s",
		"COGNITO_SPECULATIVE__ENABLED=false",
		"UNRELATED=1",
	})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2, cfg.Engine.MaxIterations)
	assert.Equal(t, 64, cfg.Engine.MaxSteps)
	assert.Equal(t, []string{"mortgage"}, cfg.Policy.SensitiveTopics)
	assert.Equal(t, 90*time.Second, cfg.Store.TTL)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.False(t, cfg.Speculative.Enabled)
	assert.Equal(t, "gpt-4o", cfg.Policy.StrongModel)
}

func TestLoadFrom_Invalid(t *testing.T) {
	cases := map[string][]string{
		"iterations":      {"COGNITO_ENGINE__MAX_ITERATIONS=0"},
		"provider":        {"COGNITO_ORACLE__PROVIDER=llama"},
		"missing api key": {"COGNITO_ORACLE__PROVIDER=openai"},
		"redis addr":      {"COGNITO_STORE__BACKEND=redis"},
		"sqlite path":     {"COGNITO_SINKS__BACKEND=sqlite"},
		"short key":       {"COGNITO_STORE__ENCRYPTION_KEY=abcd"},
		"did":             {"COGNITO_SIGNER__DID=cognito"},
		"not a number":    {"COGNITO_ENGINE__MAX_STEPS=many"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.LoadFrom("", env)
			assert.Error(t, err)
		})
	}
}

func TestLoadFrom_MissingFile(t *testing.T) {
	_, err := config.LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.Error(t, err)
}

func TestStoreKey(t *testing.T) {
	key, err := config.StoreConfig{}.Key()
	require.NoError(t, err)
	assert.Nil(t, key)

	hexKey := "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	key, err = config.StoreConfig{EncryptionKey: hexKey}.Key()
	require.NoError(t, err)
	assert.Len(t, key, 32)
}
