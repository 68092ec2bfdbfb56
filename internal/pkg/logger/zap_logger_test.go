package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsolatedLogger_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.log")

	l := NewIsolatedLogger(path)
	l.Info("CACHE", "Entry stored", map[string]interface{}{"hash": "abc"})
	l.Debug("CACHE", "below file level", nil)
	l.Error("PERSISTENCE", "upsert failed", map[string]interface{}{"error": "boom"})
	require.NoError(t, l.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "INFO", first["level"])
	assert.Equal(t, "Entry stored", first["message"])
	assert.Equal(t, "CACHE", first["module"])
	assert.Equal(t, "abc", first["details"].(map[string]interface{})["hash"])

	var second map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "ERROR", second["level"])
	assert.Equal(t, "boom", second["error_ref"])
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Warn("MEMORY", "ignored", nil)
	assert.NoError(t, l.Sync())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "warn", ParseLevel(" WARN ").String())
	assert.Equal(t, "error", ParseLevel("error").String())
	assert.Equal(t, "debug", ParseLevel("verbose").String())
	assert.Equal(t, "debug", ParseLevel("").String())
}

func TestNew_FileOnlyDropsDebugAndWarnKeepsNoErrorRef(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	l := New(Options{FilePath: path, Level: "error"})
	l.Debug("SESSION", "dropped", nil)
	l.Warn("SESSION", "kept", map[string]interface{}{"error": "slow"})
	require.NoError(t, l.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.NotContains(t, entry, "error_ref")
}
