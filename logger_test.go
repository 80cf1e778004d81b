package kestrel

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("app")
	l.Output = &buf
	l.Level = LevelWarn

	l.Infof("should be dropped")
	assert.Empty(t, buf.String())

	l.Warnf("should appear")
	assert.NotEmpty(t, buf.String())
}

func TestLoggerLineIsJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("app")
	l.Output = &buf

	l.Infof("hello %s", "world")

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "app", m["app_name"])
	assert.Equal(t, "INFO", m["level"])
	assert.Equal(t, "hello world", m["message"])
}

func TestLoggerWithClonesAndAddsFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger("app")
	base.Output = &buf

	child := base.With("request_id", 7)
	child.Infof("hi")

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.EqualValues(t, 7, m["request_id"])

	buf.Reset()
	base.Infof("base still has no fields")
	var m2 map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m2))
	_, hasField := m2["request_id"]
	assert.False(t, hasField)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLogLevel("debug"))
	assert.Equal(t, LevelError, ParseLogLevel("ERROR"))
	assert.Equal(t, LevelInfo, ParseLogLevel("nonsense"))
}
