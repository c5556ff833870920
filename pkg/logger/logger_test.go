package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestNewProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "production", "info")
	log.Info("message sent", "conversation_id", "c1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "message sent", line["msg"])
	assert.Equal(t, "c1", line["conversation_id"])
}

func TestSecurityTagsCategory(t *testing.T) {
	var buf bytes.Buffer
	prev := base
	base = New(&buf, "production", "info")
	defer func() { base = prev }()

	Security("socket authentication failed", "remote", "10.0.0.1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "security", line["category"])
	assert.Equal(t, "10.0.0.1", line["remote"])
	assert.Equal(t, "WARN", line["level"])
}

func TestWithCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	prev := base
	base = New(&buf, "production", "info")
	defer func() { base = prev }()

	With("conn_id", "c1").Info("websocket session closed")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "c1", line["conn_id"])
}
