package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLogger_WritesStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("ticketsale", &buf, LevelInfo)

	log.Info("Ticket purchased", map[string]interface{}{"ticket_id": 3})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "ticketsale", entry["service"])
	assert.Equal(t, "Ticket purchased", entry["message"])
	assert.Equal(t, float64(3), entry["ticket_id"])
}

func TestJSONLogger_DropsBelowMinLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("ticketsale", &buf, LevelWarn)

	log.Debug("debug", nil)
	log.Info("info", nil)
	log.Warn("warn", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"level":"warn"`)
}

func TestJSONLogger_FatalExits(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("ticketsale", &buf, LevelInfo).(*jsonLogger)
	code := -1
	l.exit = func(c int) { code = c }

	l.Fatal("boom", nil)

	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), `"level":"fatal"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelError, ParseLevel(" error "))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestCorrelationID_RoundTrip(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "req-1")
	assert.Equal(t, "req-1", CorrelationIDFromContext(ctx))
	assert.Equal(t, "", CorrelationIDFromContext(context.Background()))
}
