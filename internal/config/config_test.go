package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envVars = []string{
	"CONFIG", "SERVER_ADDRESS", "BASE_URL", "FILE_STORAGE_PATH", "DATABASE_DSN",
	"SQLITE_PATH", "REDIS_ADDR", "CACHE_TTL", "AMQP_URL", "GRPC_ADDRESS",
	"ADMIN_SECRET", "CODE_LENGTH", "RATE_LIMIT", "RATE_BURST", "TRUST_PROXY",
	"STATS_INTERVAL", "LOG_LEVEL", "LOG_PRETTY",
}

// resetEnv clears every variable NewConfig reads and restores them after the test.
func resetEnv(t *testing.T) {
	t.Helper()
	for _, name := range envVars {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func withArgs(t *testing.T, args ...string) {
	t.Helper()

	oldArgs := os.Args
	oldCommandLine := flag.CommandLine
	t.Cleanup(func() {
		os.Args = oldArgs
		flag.CommandLine = oldCommandLine
	})

	flag.CommandLine = flag.NewFlagSet("cmd", flag.ContinueOnError)
	os.Args = append([]string{"cmd"}, args...)
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewConfigDefault(t *testing.T) {
	resetEnv(t)
	withArgs(t)

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.ServerAddress)
	assert.Equal(t, "http://localhost:5000", cfg.BaseURL)
	assert.Equal(t, "", cfg.FileStoragePath)
	assert.Equal(t, "", cfg.DatabaseDSN)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, 8, cfg.CodeLength)
	assert.Equal(t, float64(10), cfg.RateLimit)
	assert.Equal(t, 20, cfg.RateBurst)
	assert.Equal(t, time.Minute, cfg.StatsInterval)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogPretty)
	assert.False(t, cfg.TrustProxy)
}

func TestNewConfigWithArgs(t *testing.T) {
	resetEnv(t)
	withArgs(t,
		"-a", "localhost:8888",
		"-b", "http://sho.rt",
		"-s", "/tmp/urls.db",
		"-r", "localhost:6379",
		"-cache-ttl", "5m",
		"-code-length", "10",
		"-rate-limit", "2.5",
		"-trust-proxy",
		"-log-pretty",
	)

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "localhost:8888", cfg.ServerAddress)
	assert.Equal(t, "http://sho.rt", cfg.BaseURL)
	assert.Equal(t, "/tmp/urls.db", cfg.SQLitePath)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 10, cfg.CodeLength)
	assert.Equal(t, 2.5, cfg.RateLimit)
	assert.True(t, cfg.TrustProxy)
	assert.True(t, cfg.LogPretty)
}

func TestNewConfigEnvOverridesFlags(t *testing.T) {
	resetEnv(t)
	t.Setenv("SERVER_ADDRESS", "env:5000")
	t.Setenv("DATABASE_DSN", "postgres://env")
	t.Setenv("STATS_INTERVAL", "30s")
	t.Setenv("RATE_BURST", "3")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("TRUST_PROXY", "1")
	withArgs(t, "-a", "flag:5000", "-d", "postgres://flag")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "env:5000", cfg.ServerAddress)
	assert.Equal(t, "postgres://env", cfg.DatabaseDSN)
	assert.Equal(t, 30*time.Second, cfg.StatsInterval)
	assert.Equal(t, 3, cfg.RateBurst)
	assert.True(t, cfg.TrustProxy)
	assert.True(t, cfg.LogPretty)
}

func TestNewConfigWithJSON(t *testing.T) {
	resetEnv(t)
	path := writeConfigFile(t, `{
		"server_address": "json:5000",
		"base_url": "https://json.example",
		"redis_addr": "redis:6379",
		"cache_ttl": "90s",
		"code_length": 12,
		"rate_limit": 0,
		"trust_proxy": true,
		"log_pretty": true
	}`)
	withArgs(t, "-c", path)

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "json:5000", cfg.ServerAddress)
	assert.Equal(t, "https://json.example", cfg.BaseURL)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, 12, cfg.CodeLength)
	assert.Equal(t, float64(0), cfg.RateLimit, "explicit zero disables limiting")
	assert.True(t, cfg.LogPretty)
	assert.True(t, cfg.TrustProxy)
	assert.Equal(t, 20, cfg.RateBurst, "missing keys keep defaults")
}

func TestNewConfigJSONPriority(t *testing.T) {
	tests := []struct {
		name string
		env  string
		args []string
		want string
	}{
		{name: "json only", want: "json:5000"},
		{name: "flag beats json", args: []string{"-a", "flag:5000"}, want: "flag:5000"},
		{name: "env beats flag and json", env: "env:5000", args: []string{"-a", "flag:5000"}, want: "env:5000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetEnv(t)
			path := writeConfigFile(t, `{"server_address": "json:5000"}`)
			if tt.env != "" {
				t.Setenv("SERVER_ADDRESS", tt.env)
			}
			withArgs(t, append([]string{"-c", path}, tt.args...)...)

			cfg, err := NewConfig()
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.ServerAddress)
		})
	}
}

func TestNewConfigJSONFromEnv(t *testing.T) {
	resetEnv(t)
	t.Setenv("CONFIG", writeConfigFile(t, `{"grpc_address": ":3200"}`))
	withArgs(t)

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, ":3200", cfg.GRPCAddress)
}

func TestNewConfigDotEnv(t *testing.T) {
	resetEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ADMIN_SECRET=from-dotenv\nCODE_LENGTH=6\n"), 0o644))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	withArgs(t)

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "from-dotenv", cfg.AdminSecret)
	assert.Equal(t, 6, cfg.CodeLength)
}

func TestNewConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		file string
	}{
		{name: "bad base url", env: map[string]string{"BASE_URL": "localhost:5000"}},
		{name: "ftp base url", env: map[string]string{"BASE_URL": "ftp://localhost"}},
		{name: "short code length", env: map[string]string{"CODE_LENGTH": "2"}},
		{name: "long code length", env: map[string]string{"CODE_LENGTH": "64"}},
		{name: "bad duration", env: map[string]string{"CACHE_TTL": "soon"}},
		{name: "zero stats interval", env: map[string]string{"STATS_INTERVAL": "0s"}},
		{name: "negative rate", env: map[string]string{"RATE_LIMIT": "-1"}},
		{name: "bad bool", env: map[string]string{"LOG_PRETTY": "maybe"}},
		{name: "malformed json", file: `{"server_address":`},
		{name: "bad json duration", file: `{"stats_interval":"weekly"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			var args []string
			if tt.file != "" {
				args = []string{"-c", writeConfigFile(t, tt.file)}
			}
			withArgs(t, args...)

			_, err := NewConfig()
			assert.Error(t, err)
		})
	}
}

func TestNewConfigMissingFile(t *testing.T) {
	resetEnv(t)
	withArgs(t, "-c", filepath.Join(t.TempDir(), "absent.json"))

	_, err := NewConfig()
	assert.Error(t, err)
}
