package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConsole_Defaults(t *testing.T) {
	cfg, err := LoadConsole("", lookupFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, DefaultConsole(), cfg)
	assert.Equal(t, 300*time.Second, cfg.PollInterval)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConsole_Layers(t *testing.T) {
	path := writeFile(t, "console.yaml", `
server_url: http://yaml:8080
poll_interval: 60s
page_size: 5
labels:
  neg_asal:
    JP: Japan
  upt:
    "1000": Jakarta
`)
	cfg, err := LoadConsole(path, lookupFrom(map[string]string{
		"ESPS_SERVER_URL": "http://env:8080",
		"ESPS_PAGE_SIZE":  "20",
	}))
	require.NoError(t, err)

	// окружение перекрывает YAML
	assert.Equal(t, "http://env:8080", cfg.ServerURL)
	assert.Equal(t, 20, cfg.PageSize)
	// YAML перекрывает значения по умолчанию
	assert.Equal(t, 60*time.Second, cfg.PollInterval)
	assert.Equal(t, "Japan", cfg.Labels["neg_asal"]["JP"])
	assert.Equal(t, "Jakarta", cfg.Labels["upt"]["1000"])

	// флаги перекрывают все
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--server", "http://flag:8080", "--poll-interval", "10s"}))
	require.NoError(t, cfg.ApplyFlags(fs))

	assert.Equal(t, "http://flag:8080", cfg.ServerURL)
	assert.Equal(t, 10*time.Second, cfg.PollInterval)
	assert.Equal(t, 20, cfg.PageSize, "unset flags keep the previous layer")
}

func TestLoadConsole_Errors(t *testing.T) {
	_, err := LoadConsole(filepath.Join(t.TempDir(), "missing.yaml"), lookupFrom(nil))
	assert.Error(t, err)

	bad := writeFile(t, "bad.yaml", "page_size: [1, 2")
	_, err = LoadConsole(bad, lookupFrom(nil))
	assert.Error(t, err)

	_, err = LoadConsole("", lookupFrom(map[string]string{
		"ESPS_PAGE_SIZE":     "ten",
		"ESPS_POLL_INTERVAL": "soon",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ESPS_PAGE_SIZE")
	assert.Contains(t, err.Error(), "ESPS_POLL_INTERVAL")
}

func TestConsole_Validate(t *testing.T) {
	cfg := DefaultConsole()
	cfg.PageSize = 7
	cfg.ServerURL = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page size")
	assert.Contains(t, err.Error(), "server URL")

	assert.True(t, ValidPageSize(5))
	assert.False(t, ValidPageSize(0))
}

func TestLoadServer(t *testing.T) {
	path := writeFile(t, "server.yaml", `
addr: ":9000"
jwt_secret: from-yaml-0123456789-0123456789-xx
lockout:
  driver: redis
  window: 5m
  redis:
    addr: redis:6379
`)
	cfg, err := LoadServer([]string{"-config", path, "-addr", ":9100"}, lookupFrom(map[string]string{
		"ESPS_TOKEN_TTL":            "1h",
		"ESPS_LOCKOUT_MAX_FAILURES": "3",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Addr)
	assert.Equal(t, "from-yaml-0123456789-0123456789-xx", cfg.JWTSecret)
	assert.Equal(t, time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, LockoutRedis, cfg.Lockout.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Lockout.Window)
	assert.Equal(t, 3, cfg.Lockout.MaxFailures)
	assert.Equal(t, "redis:6379", cfg.Lockout.Redis.Addr)
	assert.Equal(t, "esps:lockout:", cfg.Lockout.Redis.Prefix)
	assert.NoError(t, cfg.Validate())
}

func TestLoadServer_ConfigFromEnv(t *testing.T) {
	path := writeFile(t, "server.yaml", "addr: \":7000\"\n")
	cfg, err := LoadServer(nil, lookupFrom(map[string]string{"ESPS_SERVER_CONFIG": path}))
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Addr)
}

func TestServer_Validate(t *testing.T) {
	cfg := DefaultServer()
	cfg.JWTSecret = "short"
	cfg.Lockout.Driver = "etcd"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "etcd")
}

func TestFilterArgs(t *testing.T) {
	args := []string{"-addr", ":1", "-config", "a.yaml", "--config=b.yaml", "-db", "x"}
	assert.Equal(t, []string{"-config", "a.yaml", "--config=b.yaml"}, filterArgs(args, "config"))
	assert.Empty(t, filterArgs([]string{"-addr", ":1"}, "config"))
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, ".env", "ESPS_TEST_DOTENV=loaded\n")
	t.Cleanup(func() { _ = os.Unsetenv("ESPS_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("ESPS_TEST_DOTENV"))

	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}
