package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satriahrh/morsenet/domain/morse"
	"github.com/satriahrh/morsenet/internal/framing"
)

var allKeys = []string{
	"CONFIG_FILE", "RELAY_HOST", "RELAY_PORT", "HTTP_ADDR", "FRAMING", "DECODE_MODE",
	"MAX_FRAME_SIZE", "SEND_QUEUE_SIZE", "WRITE_WAIT", "STATS_INTERVAL", "REDIS_ADDR",
	"REDIS_CHANNEL", "MDNS_ENABLED", "MDNS_INSTANCE", "OPERATOR_SECRET", "LOG_DEVELOPMENT",
	"SERVER_IP", "SERVER_PORT", "DOT_THRESHOLD", "LETTER_GAP", "DIAL_TIMEOUT", "DISCOVER",
}

// clearEnv unsets every known key and restores the previous values after the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadServer_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadServer(noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, DefaultServer(), *cfg)
	assert.Equal(t, "0.0.0.0:5555", cfg.RelayAddr())
	assert.Equal(t, framing.ModeLine, cfg.Framing)
	assert.Equal(t, morse.Lenient, cfg.DecodeMode)
}

func TestLoadServer_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("RELAY_HOST", "127.0.0.1")
	t.Setenv("RELAY_PORT", "6000")
	t.Setenv("FRAMING", "Legacy")
	t.Setenv("DECODE_MODE", "strict")
	t.Setenv("WRITE_WAIT", "250ms")
	t.Setenv("STATS_INTERVAL", "30")
	t.Setenv("MDNS_ENABLED", "true")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := LoadServer(noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6000", cfg.RelayAddr())
	assert.Equal(t, framing.ModeLegacy, cfg.Framing)
	assert.Equal(t, morse.Strict, cfg.DecodeMode)
	assert.Equal(t, 250*time.Millisecond, cfg.WriteWait.Std())
	assert.Equal(t, 30*time.Second, cfg.StatsInterval.Std())
	assert.True(t, cfg.MDNSEnabled)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoadServer_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "relay.yaml", `
relay_port: 7000
http_addr: ":9090"
write_wait: 2s
redis_channel: ops
operator_secret: from-file
`)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("OPERATOR_SECRET", "from-env")

	cfg, err := LoadServer(noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 2*time.Second, cfg.WriteWait.Std())
	assert.Equal(t, "ops", cfg.RedisChannel)
	assert.Equal(t, "from-env", cfg.OperatorSecret)
}

func TestLoadServer_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	envFile := writeFile(t, ".env", "RELAY_PORT=5999\nHTTP_ADDR=:8181\n")
	t.Setenv("HTTP_ADDR", ":7070")

	cfg, err := LoadServer(envFile)
	require.NoError(t, err)
	assert.Equal(t, 5999, cfg.Port)
	assert.Equal(t, ":7070", cfg.HTTPAddr)
}

func TestLoadServer_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		file string
	}{
		{name: "port not a number", env: map[string]string{"RELAY_PORT": "abc"}},
		{name: "port out of range", env: map[string]string{"RELAY_PORT": "70000"}},
		{name: "unknown framing", env: map[string]string{"FRAMING": "xml"}},
		{name: "unknown decode mode", env: map[string]string{"DECODE_MODE": "loose"}},
		{name: "bad duration", env: map[string]string{"WRITE_WAIT": "soon"}},
		{name: "bad bool", env: map[string]string{"MDNS_ENABLED": "maybe"}},
		{name: "zero queue", env: map[string]string{"SEND_QUEUE_SIZE": "0"}},
		{name: "malformed yaml", file: "relay_port: [1, 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if tt.file != "" {
				t.Setenv("CONFIG_FILE", writeFile(t, "relay.yaml", tt.file))
			}

			_, err := LoadServer(noEnvFile(t))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadServer_ReportsEveryProblem(t *testing.T) {
	clearEnv(t)
	t.Setenv("RELAY_PORT", "0")
	t.Setenv("FRAMING", "xml")

	_, err := LoadServer(noEnvFile(t))
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "RELAY_PORT")
	assert.Contains(t, err.Error(), "FRAMING")
}

func TestLoadClient(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadClient(noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:5555", cfg.ServerAddr())
	assert.Equal(t, 200*time.Millisecond, cfg.DotThreshold.Std())
	assert.Equal(t, morse.Strict, cfg.DecodeMode)

	t.Setenv("SERVER_IP", "10.1.2.3")
	t.Setenv("SERVER_PORT", "5000")
	t.Setenv("DOT_THRESHOLD", "0.35")
	t.Setenv("LETTER_GAP", "0")

	cfg, err = LoadClient(noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, "10.1.2.3:5000", cfg.ServerAddr())
	assert.Equal(t, 350*time.Millisecond, cfg.DotThreshold.Std())
	assert.Equal(t, time.Duration(0), cfg.LetterGap.Std())
}

func TestLoadClient_Invalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("DOT_THRESHOLD", "0")

	_, err := LoadClient(noEnvFile(t))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadClient_DiscoverSkipsAddress(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCOVER", "1")
	t.Setenv("SERVER_IP", "")
	t.Setenv("SERVER_PORT", "0")

	cfg, err := LoadClient(noEnvFile(t))
	require.NoError(t, err)
	assert.True(t, cfg.Discover)
}

func TestDuration_JSON(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`"1m30s"`)))
	assert.Equal(t, 90*time.Second, d.Std())

	require.NoError(t, d.UnmarshalJSON([]byte(`0.5`)))
	assert.Equal(t, 500*time.Millisecond, d.Std())

	assert.Error(t, d.UnmarshalJSON([]byte(`true`)))

	out, err := Duration(2 * time.Second).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2s"`, string(out))
}
