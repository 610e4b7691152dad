package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_JSONComponentFields(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Configure(Config{Level: "debug", Format: "json", Output: &buf, Service: "vidgen-test"}))
	t.Cleanup(func() { _ = Configure(Config{Output: &bytes.Buffer{}}) })

	logger := WithComponent("orchestrator")
	logger.Info().Str("job_id", "abc").Msg("job accepted")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "vidgen-test", entry["service"])
	assert.Equal(t, "orchestrator", entry["component"])
	assert.Equal(t, "abc", entry["job_id"])
	assert.Equal(t, "job accepted", entry["message"])
}

func TestConfigure_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Configure(Config{Level: "warn", Format: "json", Output: &buf}))
	t.Cleanup(func() { _ = Configure(Config{Output: &bytes.Buffer{}}) })

	l := Base()
	l.Info().Msg("hidden")
	l.Warn().Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestConfigure_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "vidgen.log")
	require.NoError(t, Configure(Config{Format: "json", Output: &bytes.Buffer{}, File: path}))

	l := Base()
	l.Info().Msg("to file")
	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "to file"))

	_ = Configure(Config{Output: &bytes.Buffer{}})
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
		"bogus":   zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogrotateConfig(t *testing.T) {
	out := LogrotateConfig("/var/log/vidgen/serve.log", 0)
	assert.Contains(t, out, "/var/log/vidgen/serve.log {")
	assert.Contains(t, out, "rotate 14")
	assert.Contains(t, out, "copytruncate")

	assert.Contains(t, LogrotateConfig("/tmp/v.log", 3), "rotate 3")
}
