package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, format, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetFormat(format)
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetFormat("text")
		SetOutput(os.Stdout)
		SetLevel("info")
	})
	return &buf
}

func TestSetLevelFiltersDebug(t *testing.T) {
	buf := capture(t, "text", "info")
	Debugf("hidden %d", 1)
	Infof("shown %d", 2)
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown 2")

	SetLevel("debug")
	Debugf("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestJSONFormatCarriesFields(t *testing.T) {
	buf := capture(t, "json", "info")
	With("symbol", "USD_JPY", "rule", 7).Warnf("flip %s", "short")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "flip short", rec["msg"])
	assert.Equal(t, "USD_JPY", rec["symbol"])
	assert.EqualValues(t, 7, rec["rule"])
}

func TestInfoBlockSplitsLines(t *testing.T) {
	buf := capture(t, "text", "info")
	InfoBlock("\nline one\nline two\n")
	out := strings.TrimSpace(buf.String())
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "line one")
	assert.Contains(t, lines[1], "line two")

	buf.Reset()
	InfoBlock("   ")
	assert.Empty(t, buf.String())
}
