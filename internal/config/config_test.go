package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bedrocknet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "/", cfg.Path)
	assert.Empty(t, cfg.Subscribe)
	assert.Equal(t, 30*time.Second, cfg.CommandTimeout)
	assert.EqualValues(t, 100, cfg.MaxInFlight)
	assert.Equal(t, RateLimit{Enabled: true, MessagesPerSecond: 100, Burst: 200}, cfg.RateLimit)
	assert.Equal(t, NATS{Prefix: "bedrock"}, cfg.NATS)
	assert.Equal(t, Log{Level: "info"}, cfg.Log)
	assert.Equal(t, "localhost:8000", cfg.Addr())
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
host: 0.0.0.0
port: 19131
subscribe:
  - player_message
  - BlockBroken
command_timeout: 5s
rate_limit:
  enabled: false
nats:
  url: nats://127.0.0.1:4222
  prefix: mc
log:
  level: debug
  json: true
`)

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:19131", cfg.Addr())
	assert.Equal(t, []string{"player_message", "BlockBroken"}, cfg.Subscribe)
	assert.Equal(t, 5*time.Second, cfg.CommandTimeout)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, NATS{URL: "nats://127.0.0.1:4222", Prefix: "mc"}, cfg.NATS)
	assert.Equal(t, Log{Level: "debug", JSON: true}, cfg.Log)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "port: 19131\n")
	t.Setenv("BEDROCKNET_PORT", "8123")
	t.Setenv("BEDROCKNET_NATS_PREFIX", "world")
	t.Setenv("BEDROCKNET_COMMAND_TIMEOUT", "250ms")

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, 8123, cfg.Port)
	assert.Equal(t, "world", cfg.NATS.Prefix)
	assert.Equal(t, 250*time.Millisecond, cfg.CommandTimeout)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := Load(New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		return Config{
			Host:      "localhost",
			Port:      8000,
			Path:      "/",
			RateLimit: RateLimit{Enabled: true, MessagesPerSecond: 1, Burst: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"ephemeral port", func(c *Config) { c.Port = 0 }, false},
		{"port out of range", func(c *Config) { c.Port = 70000 }, true},
		{"relative path", func(c *Config) { c.Path = "ws" }, true},
		{"negative timeout", func(c *Config) { c.CommandTimeout = -time.Second }, true},
		{"negative max in flight", func(c *Config) { c.MaxInFlight = -1 }, true},
		{"zero burst", func(c *Config) { c.RateLimit.Burst = 0 }, true},
		{"disabled rate limit ignores values", func(c *Config) { c.RateLimit = RateLimit{} }, false},
		{"nats without prefix", func(c *Config) { c.NATS.URL = "nats://localhost:4222" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
