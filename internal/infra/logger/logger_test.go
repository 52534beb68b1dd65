package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"verbose": zerolog.InfoLevel,
	}
	for input, expected := range tests {
		assert.Equal(t, expected, parseLevel(input), "input %q", input)
	}
}

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, zerolog.InfoLevel, false)

	l.Info().Str("track", "1").Msg("loaded")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "loaded", entry["message"])
	assert.Equal(t, "1", entry["track"])
	assert.NotContains(t, entry, "caller")
}

func TestShortCaller(t *testing.T) {
	file := filepath.Join("root", "module", "internal", "app", "playback", "coordinator.go")
	assert.Equal(t, filepath.Join("playback", "coordinator.go")+":42", shortCaller(0, file, 42))
	assert.Equal(t, "main.go:7", shortCaller(0, "main.go", 7))
}

func TestInit_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tunemap.log")
	require.NoError(t, Init(Config{Output: path, Level: "info"}))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}
