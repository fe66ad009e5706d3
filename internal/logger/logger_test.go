package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterLogger_WritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, INFO)

	l.Debug("cache", "dropped")
	l.LogBooking("ANALYZE", 42, "consistent")
	l.LogSecurity("TOKEN", "expired")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var entry LogEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "INFO", entry.Level)
	assert.Equal(t, "BOOKING", entry.Category)
	assert.Equal(t, "[ANALYZE] 42 - consistent", entry.Message)

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	assert.Equal(t, "WARN", entry.Level)
	assert.Equal(t, "SECURITY", entry.Category)
}

func TestDiscardLogger_IsSilent(t *testing.T) {
	l := NewDiscardLogger()
	assert.NotPanics(t, func() {
		l.Error("test", "nothing happens")
		l.Close()
	})
}
