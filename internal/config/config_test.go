package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"c4arch/editor"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, editor.LabelEditInPlace, cfg.Policy())
	assert.Equal(t, StoreMemory, cfg.Store.Kind)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "c4arch.yaml", `
remote_url: https://diagrams.internal:5000
remote_timeout: 5s
log:
  level: debug
  json: true
store:
  kind: redis
  redis_addr: cache:6379
  ttl: 2h
history_limit: 50
label_policy: commit
`)

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "https://diagrams.internal:5000", cfg.RemoteURL)
	assert.Equal(t, 5*time.Second, cfg.RemoteTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, StoreRedis, cfg.Store.Kind)
	assert.Equal(t, "cache:6379", cfg.Store.RedisAddr)
	assert.Equal(t, 2*time.Hour, cfg.Store.TTL)
	assert.Equal(t, 50, cfg.HistoryLimit)
	assert.Equal(t, editor.LabelEditCommit, cfg.Policy())
	assert.Equal(t, ":8080", cfg.Listen, "unset keys keep defaults")
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "c4arch.json", `{"listen": ":9090", "store": {"redis_db": 3}}`)

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, 3, cfg.Store.RedisDB)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "c4arch.yaml", "remote: http://x\n")
	_, err := Load(path, "")
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "c4arch.yaml", "listen: ':7000'\n")
	t.Setenv("C4ARCH_LISTEN", ":7100")
	t.Setenv("C4ARCH_STORE_TTL", "90m")
	t.Setenv("C4ARCH_LOG_JSON", "true")

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, ":7100", cfg.Listen)
	assert.Equal(t, 90*time.Minute, cfg.Store.TTL)
	assert.True(t, cfg.Log.JSON)
}

func TestDotEnvFile(t *testing.T) {
	envFile := writeFile(t, ".env", "C4ARCH_HISTORY_LIMIT=12\n")
	t.Cleanup(func() { os.Unsetenv("C4ARCH_HISTORY_LIMIT") })

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.HistoryLimit)
}

func TestMissingDotEnvIsIgnored(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), ".env"))
	assert.NoError(t, err)
}

func TestApplyEnvWithLookup(t *testing.T) {
	cfg := Default()
	env := map[string]string{
		"C4ARCH_REMOTE_TIMEOUT": "250ms",
		"C4ARCH_STORE_KIND":     "redis",
	}
	err := ApplyEnv(&cfg, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.RemoteTimeout)
	assert.Equal(t, StoreRedis, cfg.Store.Kind)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad url", func(c *Config) { c.RemoteURL = "localhost:5000" }},
		{"zero timeout", func(c *Config) { c.RemoteTimeout = 0 }},
		{"bad level", func(c *Config) { c.Log.Level = "verbose" }},
		{"bad store", func(c *Config) { c.Store.Kind = "etcd" }},
		{"redis without addr", func(c *Config) { c.Store.Kind = StoreRedis; c.Store.RedisAddr = "" }},
		{"negative history", func(c *Config) { c.HistoryLimit = -1 }},
		{"bad policy", func(c *Config) { c.LabelPolicy = "sometimes" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
