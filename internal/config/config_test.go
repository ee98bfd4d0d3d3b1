package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"SWH_CONFIG", "ENV", "SWH_POOL",
	"SWH_API_URL_PROD", "SWH_TOKEN_PROD", "SWH_API_URL_STAGING", "SWH_TOKEN_STAGING",
	"SWH_CONNECT_TIMEOUT", "SWH_TIMEOUT", "SWH_RETRY_INTERVAL", "SWH_RETRY_MAX_DELAY",
	"SWH_MAX_ATTEMPTS", "SWH_MAX_URL_LENGTH", "SWH_RATE_LIMIT", "SWH_IPV4_ONLY",
	"SWH_VERBOSE", "SWH_BACKOFF", "SWH_RESPONSE_SHAPE", "SWH_AUDIT_DB", "SWH_METRICS_FILE",
	"LOG_CONSOLE_LEVEL", "LOG_FILE_LEVEL", "LOG_FILE", "LOG_FILE_DATESTAMP",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "swh.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_EnvOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv("SWH_API_URL_PROD", "https://archive.softwareheritage.org")
	t.Setenv("SWH_TOKEN_PROD", "prod-token")
	t.Setenv("SWH_API_URL_STAGING", "https://webapp.staging.swh.network")

	c, err := Load("")
	require.NoError(t, err)

	require.Len(t, c.Pools, 2)
	assert.Equal(t, Pool{Name: PoolProduction, URL: "https://archive.softwareheritage.org", Token: "prod-token"}, c.Pools[0])
	assert.Equal(t, PoolStaging, c.Pools[1].Name)
	assert.Empty(t, c.Pools[1].Token)

	assert.Equal(t, PoolProduction, c.DefaultPool)
	assert.Equal(t, 5*time.Second, c.HTTP.ConnectTimeout)
	assert.Equal(t, 5*time.Second, c.HTTP.Timeout)
	assert.Equal(t, 5, c.Retry.MaxAttempts)
	assert.Equal(t, 5*time.Second, c.Retry.Interval)
	assert.Equal(t, "fixed", c.Retry.Backoff)
	assert.Equal(t, 255, c.Validation.MaxURLLength)
	assert.Equal(t, "json", c.Response.Shape)
	assert.Equal(t, "info", c.Log.ConsoleLevel)
	assert.Equal(t, "debug", c.Log.FileLevel)
}

func TestLoad_NoPools(t *testing.T) {
	clearEnv(t)
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_FileThenEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("MIRROR_TOKEN", "from-env")
	t.Setenv("SWH_MAX_ATTEMPTS", "2")
	t.Setenv("SWH_TOKEN_PROD", "override")

	path := writeFile(t, `
env: dev
default_pool: mirror
pools:
  - name: production
    url: https://archive.softwareheritage.org
    token: from-file
  - name: mirror
    url: https://mirror.example.org
    token: ${MIRROR_TOKEN}
http:
  timeout: 30s
  ipv4_only: true
  rate_limit: 2.5
retry:
  max_attempts: 7
  interval: 250ms
  backoff: exponential
response:
  shape: wrapped
audit:
  dsn: /tmp/swh.db
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "dev", c.Env)
	assert.Equal(t, "mirror", c.DefaultPool)
	assert.Equal(t, "override", c.Pool(PoolProduction).Token)
	assert.Equal(t, "from-env", c.Pool("mirror").Token)
	assert.Equal(t, 30*time.Second, c.HTTP.Timeout)
	assert.Equal(t, 5*time.Second, c.HTTP.ConnectTimeout)
	assert.True(t, c.HTTP.IPv4Only)
	assert.InDelta(t, 2.5, c.HTTP.RateLimit, 0.001)
	assert.Equal(t, 2, c.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, c.Retry.Interval)
	assert.Equal(t, "exponential", c.Retry.Backoff)
	assert.Equal(t, "wrapped", c.Response.Shape)
	assert.Equal(t, "/tmp/swh.db", c.Audit.DSN)
}

func TestLoad_ConfigFromEnvPath(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "pools:\n  - name: production\n    url: https://archive.softwareheritage.org\n")
	t.Setenv("SWH_CONFIG", path)

	c, err := Load("")
	require.NoError(t, err)
	assert.Len(t, c.Pools, 1)
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "pools:\n  - name: production\n    url: https://a.example\nretries: 3\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retries")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad duration", map[string]string{"SWH_TIMEOUT": "soon"}},
		{"bad int", map[string]string{"SWH_MAX_ATTEMPTS": "many"}},
		{"bad bool", map[string]string{"SWH_IPV4_ONLY": "sometimes"}},
		{"zero attempts", map[string]string{"SWH_MAX_ATTEMPTS": "0"}},
		{"unknown backoff", map[string]string{"SWH_BACKOFF": "linear"}},
		{"unknown shape", map[string]string{"SWH_RESPONSE_SHAPE": "xml"}},
		{"unknown pool", map[string]string{"SWH_POOL": "nowhere"}},
		{"relative pool url", map[string]string{"SWH_API_URL_PROD": "archive.example"}},
		{"interval above max delay", map[string]string{"SWH_RETRY_INTERVAL": "2m"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("SWH_API_URL_PROD", "https://archive.softwareheritage.org")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}
