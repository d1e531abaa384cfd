package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/calls/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, filepath.Join("data", "calls"), cfg.StoreLocation())
	assert.Equal(t, filepath.Join("data", "index"), cfg.IndexLocation())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
client_id: acme
recordings_dir: /srv/recordings
data_dir: /srv/data
oracle:
  provider: anthropic
  api_key_env: ANTHROPIC_API_KEY
  model: claude-sonnet-4-5
  timeout: 45s
  retries: 2
  rate_limit: 0.5
  workers: 4
store:
  provider: sqlite
index:
  provider: qdrant
  location: http://localhost:6333
compliance:
  required_phrases:
    - your call is being recorded
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "acme", cfg.ClientID)
	assert.Equal(t, "anthropic", cfg.Oracle.Provider)
	assert.Equal(t, 45*time.Second, cfg.Oracle.Timeout)
	assert.Equal(t, 2, cfg.Oracle.Retries)
	assert.Equal(t, 0.5, cfg.Oracle.RateLimit)
	assert.Equal(t, 4, cfg.Oracle.Workers)
	assert.Equal(t, time.Second, cfg.Oracle.Backoff)
	assert.Equal(t, "whisper-1", cfg.Transcription.Model)
	assert.Equal(t, []string{"your call is being recorded"}, cfg.Compliance.RequiredPhrases)
	assert.Equal(t, []string{}, cfg.Compliance.ForbiddenPhrases)
	assert.Equal(t, filepath.Join("/srv/data", "calls.db"), cfg.StoreLocation())
	assert.Equal(t, "http://localhost:6333", cfg.IndexLocation())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown oracle provider", body: "oracle:\n  provider: parrot\n"},
		{name: "unknown store provider", body: "store:\n  provider: floppy\n"},
		{name: "postgres without location", body: "index:\n  provider: postgres\n"},
		{name: "negative retries", body: "oracle:\n  retries: -1\n"},
		{name: "zero workers", body: "oracle:\n  workers: 0\n"},
		{name: "malformed yaml", body: "oracle: [\n"},
		{name: "bad duration", body: "oracle:\n  timeout: soon\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.body))
			require.ErrorIs(t, err, config.ErrConfiguration)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorIs(t, err, config.ErrConfiguration)
}

func TestAPIKey(t *testing.T) {
	t.Setenv("CALLS_TEST_KEY", "sk-test")
	key, err := config.APIKey("CALLS_TEST_KEY")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", key)

	t.Setenv("CALLS_TEST_KEY", "  ")
	_, err = config.APIKey("CALLS_TEST_KEY")
	require.ErrorIs(t, err, config.ErrConfiguration)

	_, err = config.APIKey("")
	require.ErrorIs(t, err, config.ErrConfiguration)
}
