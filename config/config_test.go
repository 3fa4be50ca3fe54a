package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sontara444/taskmanager-client/config"
)

// unsetEnv removes variables for the test and restores them afterwards.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func cleanEnv(t *testing.T) {
	t.Helper()
	unsetEnv(t,
		"TASKMANAGER_BACKEND_URL", "BACKEND_URL", "VITE_BACKEND_URL",
		"TASKMANAGER_API_PREFIX", "TASKMANAGER_PUSH_PATH", "TASKMANAGER_TOKEN_FILE",
		"TASKMANAGER_LOG_FILE", "TASKMANAGER_LOG_LEVEL", "TASKMANAGER_REQUEST_TIMEOUT",
		"TASKMANAGER_STALE_TIME", "TASKMANAGER_RECONNECT_DELAY",
		"TASKMANAGER_BREAKER_MAX_FAILURES", "TASKMANAGER_BREAKER_TIMEOUT",
	)
}

func Test_Load_Uses_Defaults_When_Nothing_Is_Set(t *testing.T) {
	cleanEnv(t)

	cfg, err := config.Load("", "")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000", cfg.BackendURL)
	assert.Equal(t, "http://localhost:5000/api", cfg.APIBaseURL())
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, time.Duration(0), cfg.StaleTime)
	assert.Equal(t, 2*time.Second, cfg.ReconnectDelay)
	assert.Equal(t, uint32(3), cfg.BreakerMaxFailures)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "token", filepath.Base(cfg.TokenFile))

	push, err := cfg.PushURL()
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:5000/ws", push)
}

func Test_Load_Prefers_Prefixed_Environment_Over_Fallbacks(t *testing.T) {
	cleanEnv(t)
	t.Setenv("BACKEND_URL", "http://fallback:1")
	t.Setenv("TASKMANAGER_BACKEND_URL", "https://tasks.example.com/")
	t.Setenv("TASKMANAGER_STALE_TIME", "30s")
	t.Setenv("TASKMANAGER_BREAKER_MAX_FAILURES", "7")

	cfg, err := config.Load("", "")
	require.NoError(t, err)

	assert.Equal(t, "https://tasks.example.com/api", cfg.APIBaseURL())
	assert.Equal(t, 30*time.Second, cfg.StaleTime)
	assert.Equal(t, uint32(7), cfg.BreakerMaxFailures)

	push, err := cfg.PushURL()
	require.NoError(t, err)
	assert.Equal(t, "wss://tasks.example.com/ws", push)
}

func Test_Load_Accepts_Frontend_Backend_Url_Variable(t *testing.T) {
	cleanEnv(t)
	t.Setenv("VITE_BACKEND_URL", "http://vite:5173")

	cfg, err := config.Load("", "")
	require.NoError(t, err)
	assert.Equal(t, "http://vite:5173", cfg.BackendURL)
}

func Test_Load_Reads_Env_File_Without_Overriding_Environment(t *testing.T) {
	cleanEnv(t)
	t.Setenv("TASKMANAGER_LOG_LEVEL", "debug")
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("BACKEND_URL=http://from-env-file:9000\nTASKMANAGER_LOG_LEVEL=error\n"), 0o600))

	cfg, err := config.Load(envFile, "")
	require.NoError(t, err)

	assert.Equal(t, "http://from-env-file:9000", cfg.BackendURL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func Test_Load_Skips_Missing_Env_File(t *testing.T) {
	cleanEnv(t)

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.env"), "")
	require.NoError(t, err)
}

func Test_Load_Reads_Config_File_Below_Environment(t *testing.T) {
	cleanEnv(t)
	t.Setenv("TASKMANAGER_REQUEST_TIMEOUT", "4s")
	file := filepath.Join(t.TempDir(), "taskmanager.yaml")
	require.NoError(t, os.WriteFile(file, []byte("backend_url: http://yaml-host:8080\nrequest_timeout: 1s\npush_path: socket\n"), 0o600))

	cfg, err := config.Load("", file)
	require.NoError(t, err)

	assert.Equal(t, "http://yaml-host:8080", cfg.BackendURL)
	assert.Equal(t, 4*time.Second, cfg.RequestTimeout)
	push, err := cfg.PushURL()
	require.NoError(t, err)
	assert.Equal(t, "ws://yaml-host:8080/socket", push)
}

func Test_Load_Fails_When_Config_File_Missing(t *testing.T) {
	cleanEnv(t)

	_, err := config.Load("", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func Test_Validate_Rejects_Unusable_Backend_Url_Or_Negative_Durations(t *testing.T) {
	t.Parallel()

	cases := map[string]config.Config{
		"scheme":   {BackendURL: "ftp://host"},
		"host":     {BackendURL: "http://"},
		"duration": {BackendURL: "http://host", RequestTimeout: -time.Second},
	}
	for name, cfg := range cases {
		cfg := cfg
		t.Run(name, func(t *testing.T) {
			assert.Error(t, cfg.Validate())
		})
	}

	ok := config.Config{BackendURL: "http://host:1"}
	assert.NoError(t, ok.Validate())
}
