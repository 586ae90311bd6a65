package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewLogger(t *testing.T) {
	t.Run("creates logger with console writer", func(t *testing.T) {
		logger := NewLogger(Config{Level: "info", NoColor: true})
		assert.NotNil(t, logger)
	})

	t.Run("creates logger with file writer", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "logs", "test.log")

		logger := NewLogger(Config{Level: "info", LogFile: logFile, NoColor: true})
		assert.NotNil(t, logger)

		logger.Info().Msg("test")

		_, err := os.Stat(logFile)
		assert.NoError(t, err)
	})

	t.Run("extra writer receives records", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(Config{Level: "info", NoColor: true, Extra: &buf})

		logger.Warn().Msg("routed")
		assert.Contains(t, buf.String(), "routed")
	})

	t.Run("no console still feeds extra", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(Config{Level: "info", NoConsole: true, Extra: &buf})

		logger.Info().Msg("session only")
		assert.Contains(t, buf.String(), "session only")
	})

	t.Run("TK_DEBUG forces debug level", func(t *testing.T) {
		t.Setenv("TK_DEBUG", "1")

		logger := NewLogger(Config{Level: "warn", NoColor: true})
		assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
	})

	t.Run("level kept without TK_DEBUG", func(t *testing.T) {
		t.Setenv("TK_DEBUG", "")

		logger := NewLogger(Config{Level: "warn", NoColor: true})
		assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debug", "debug"},
		{"info", "info"},
		{"warn", "warn"},
		{"warning", "warn"},
		{"error", "error"},
		{"invalid", "info"}, // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level := parseLevel(tt.input)
			if level.String() != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, level, tt.want)
			}
		})
	}
}

func TestLoggerOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTestLogger(&buf)

	logger.Info().Str("test", "value").Msg("test message")

	assert.Contains(t, buf.String(), "test message")
	assert.Contains(t, buf.String(), `"test":"value"`)
}
