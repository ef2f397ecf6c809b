package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvJWTSecret, "")
	t.Setenv(EnvPort, "")
}

func TestParseDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Parse(nil)
	require.NoError(t, err)

	assert.Equal(t, 2333, cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, 5, cfg.Gateway.MaxConnectionsPerAddress)
	assert.Equal(t, 5*time.Second, cfg.Gateway.VerifyTimeout)
	assert.Empty(t, cfg.Gateway.Namespaces)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 5*time.Minute, cfg.Gateway.StatsInterval)
	assert.Equal(t, 168*time.Hour, cfg.LogRetention)
	assert.False(t, cfg.Redis.Enable)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URLValue())
}

func TestParseFullFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Parse([]byte(`
port: 8080
env: Production
jwt_secret: s3cret
allowed_origins: [" https://a.example ", "", "*.b.example"]
paths:
  logs: /var/log/wsgateway
gateway:
  max_connections_per_address: 2
  verify_timeout: 750ms
  namespaces: ["user", "/", "/user"]
  stats_interval: 30s
redis:
  enable: true
  host: cache
  port: 6380
  password: pw
  db: 3
  tls: true
admin_token: root-key
token_ttl: 1h
log_retention: 72h
`))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "production", cfg.Env)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, []string{"https://a.example", "*.b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "/var/log/wsgateway", cfg.LogDir())
	assert.Equal(t, 2, cfg.Gateway.MaxConnectionsPerAddress)
	assert.Equal(t, 750*time.Millisecond, cfg.Gateway.VerifyTimeout)
	assert.Equal(t, []string{"/user", "/"}, cfg.Gateway.Namespaces)
	assert.True(t, cfg.Redis.Enable)
	assert.Equal(t, "rediss://:pw@cache:6380/3", cfg.Redis.URLValue())
	assert.Equal(t, "root-key", cfg.AdminToken)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, 30*time.Second, cfg.Gateway.StatsInterval)
	assert.Equal(t, 72*time.Hour, cfg.LogRetention)
}

func TestParseAliases(t *testing.T) {
	clearEnv(t)

	cfg, err := Parse([]byte(`
jwtsecret: legacy
cors_allowed_origins: ["https://c.example"]
log_dir: ./tmp/log
redis_url: localhost:6379/1
`))
	require.NoError(t, err)

	assert.Equal(t, "legacy", cfg.JWTSecret)
	assert.Equal(t, []string{"https://c.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "./tmp/log", cfg.Paths.Logs)
	assert.Equal(t, "redis://localhost:6379/1", cfg.Redis.URLValue())
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv(EnvJWTSecret, "from-env")
	t.Setenv(EnvPort, "9000")

	cfg, err := Parse([]byte("jwt_secret: from-file\nport: 8080\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.Equal(t, 9000, cfg.Port)

	t.Setenv(EnvPort, "nope")
	_, err = Parse(nil)
	assert.ErrorContains(t, err, EnvPort)
}

func TestParseRejectsInvalid(t *testing.T) {
	clearEnv(t)

	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown key", "bogus: 1\n", "bogus"},
		{"port range", "port: 70000\n", "invalid port"},
		{"zero ceiling", "gateway:\n  max_connections_per_address: 0\n", "max_connections_per_address"},
		{"bad timeout", "gateway:\n  verify_timeout: soon\n", "verify_timeout"},
		{"negative timeout", "gateway:\n  verify_timeout: -1s\n", "verify_timeout"},
		{"negative db", "redis:\n  db: -1\n", "redis.db"},
		{"bad ttl", "token_ttl: forever\n", "token_ttl"},
		{"bad stats interval", "gateway:\n  stats_interval: 0s\n", "stats_interval"},
		{"short retention", "log_retention: 10m\n", "log_retention"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("port: 4000\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Port)

	_, err = Load(filepath.Join(dir, "missing.yml"))
	assert.ErrorContains(t, err, "missing.yml")

	require.NoError(t, os.WriteFile(path, []byte("port: [\n"), 0o600))
	_, err = Load(path)
	assert.ErrorContains(t, err, path)
}

func TestRedisURLValue(t *testing.T) {
	cases := []struct {
		name string
		cfg  RedisRuntimeConfig
		want string
	}{
		{"explicit url wins", RedisRuntimeConfig{URL: "rediss://h:1/2", Host: "ignored"}, "rediss://h:1/2"},
		{"user and password", RedisRuntimeConfig{Host: "h", Port: 1, Username: "u", Password: "p"}, "redis://u:p@h:1/0"},
		{"user only", RedisRuntimeConfig{Host: "h", Port: 1, Username: "u"}, "redis://u@h:1/0"},
		{"params", RedisRuntimeConfig{Host: "h", Port: 1, Params: map[string]string{"dial_timeout": "3s"}}, "redis://h:1/0?dial_timeout=3s"},
		{"unknown scheme", RedisRuntimeConfig{Host: "h", Port: 1, Scheme: "http"}, "redis://h:1/0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.cfg.URLValue())
		})
	}
}

func TestResolveAgainst(t *testing.T) {
	base := filepath.FromSlash("/opt/wsgateway")
	cases := []struct {
		raw, fallback, want string
	}{
		{"", "logs", filepath.FromSlash("/opt/wsgateway/logs")},
		{"  ", "", base},
		{"./var/../log", "logs", filepath.FromSlash("/opt/wsgateway/log")},
		{"/var/log/gw/", "logs", filepath.FromSlash("/var/log/gw")},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, resolveAgainst(base, tc.raw, tc.fallback), tc.raw)
	}
}
