package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/cloud-scanner-aws/internal/apperrors"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Format: FormatJSON}, &buf)
	require.NoError(t, err)

	logger.Info().Msg("dropped")
	logger.Warn().Str("aws_region", "eu-west-3").Msg("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "eu-west-3", entry["aws_region"])
	assert.Contains(t, entry, "time")
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(DefaultConfig(), &buf)
	require.NoError(t, err)

	logger.Debug().Msg("hidden")
	logger.Info().Int("resources", 3).Msg("inventory completed")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "inventory completed")
	assert.Contains(t, out, "resources=3")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"":         zerolog.InfoLevel,
		"debug":    zerolog.DebugLevel,
		" WARN ":   zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"trace":    zerolog.TraceLevel,
		"info":     zerolog.InfoLevel,
		"disabled": zerolog.Disabled,
	}
	for name, want := range tests {
		got, err := ParseLevel(name)
		require.NoError(t, err, "level %q", name)
		assert.Equal(t, want, got, "level %q", name)
	}

	_, err := ParseLevel("loud")
	assert.True(t, apperrors.IsKind(err, apperrors.KindConfig))
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{Level: "info", Format: "xml"}, &bytes.Buffer{})
	assert.True(t, apperrors.IsKind(err, apperrors.KindConfig))

	_, err = New(Config{Level: "chatty"}, &bytes.Buffer{})
	assert.True(t, apperrors.IsKind(err, apperrors.KindConfig))
}
