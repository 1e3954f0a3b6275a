package rawlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopCloser struct {
	bytes.Buffer
}

func (nopCloser) Close() error { return nil }

func readEntries(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var entries []map[string]any
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestAppendWritesOneLinePerMessage(t *testing.T) {
	out := &nopCloser{}
	l := NewWithWriter(out)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, l.Append("device/Inv_A/telemetry", []byte("{\n  \"DeviceName\": \"Inv_A\"\n}"), at))
	require.NoError(t, l.Append("device/Inv_A/alarm", []byte("not json"), at))
	require.NoError(t, l.Append("device/Inv_A/alarm", nil, at))

	entries := readEntries(t, out.Bytes())
	require.Len(t, entries, 3)
	assert.Equal(t, "2024-05-01T10:00:00Z", entries[0]["timestamp"])
	assert.Equal(t, "device/Inv_A/telemetry", entries[0]["topic"])
	assert.Equal(t, map[string]any{"DeviceName": "Inv_A"}, entries[0]["payload"])
	assert.Equal(t, "not json", entries[1]["payload"])
	assert.Equal(t, "", entries[2]["payload"])
}

func TestNewCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "raw")
	l, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, l.Append("device/x/telemetry", []byte(`{"a":1}`), time.Now()))
	require.NoError(t, l.Close())

	content, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Len(t, readEntries(t, content), 1)
}
