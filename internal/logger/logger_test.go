package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("bogus"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
}

func TestZerologAdapterWritesComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(&buf, zerolog.DebugLevel)

	log.Info("filter", "switched provider", map[string]interface{}{"to": "NLMeans"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "filter", entry["component"])
	assert.Equal(t, "switched provider", entry["message"])
	assert.Equal(t, "NLMeans", entry["to"])
	assert.Equal(t, "info", entry["level"])
}

func TestZerologAdapterErrorUsesMessageField(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(&buf, zerolog.DebugLevel)

	log.Error("registry", errors.New("no device"), map[string]interface{}{
		"message":  "probe failed",
		"provider": "CUDA",
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "probe failed", entry["message"])
	assert.Equal(t, "no device", entry["error"])
	assert.Equal(t, "CUDA", entry["provider"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(&buf, zerolog.WarnLevel)

	log.Debug("filter", "hidden", nil)
	log.Info("filter", "hidden", nil)
	assert.Zero(t, buf.Len())

	log.Warning("filter", "shown", nil)
	assert.NotZero(t, buf.Len())
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	log := NewNop()
	assert.Same(t, log, OrNop(log))
}
