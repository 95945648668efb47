package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	// Test: info level hides debug
	buf := &bytes.Buffer{}
	log := New(buf, false)
	log.Info("accepted", "client_ip", "127.0.0.1")
	log.V(Debug).Info("hostname lookup failed")

	out := buf.String()
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "msg=accepted")
	assert.Contains(t, out, "client_ip=127.0.0.1")
	assert.NotContains(t, out, "hostname lookup failed")

	// Test: debug level shows V(1)
	buf.Reset()
	log = New(buf, true)
	log.V(Debug).Info("hostname lookup failed")
	assert.Contains(t, buf.String(), "hostname lookup failed")

	// Test: errors
	buf.Reset()
	log = New(buf, false)
	log.Error(os.ErrClosed, "accept failed")
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "file already closed")
}

func TestOpen(t *testing.T) {
	w, err := Open("stdout")
	require.NoError(t, err)
	assert.NoError(t, w.Close())

	w, err = Open("")
	require.NoError(t, err)
	_, err = w.Write([]byte("dropped"))
	assert.NoError(t, err)

	name := filepath.Join(t.TempDir(), "access.log")
	w, err = Open(name)
	require.NoError(t, err)
	New(w, false).Info("hello")
	require.NoError(t, w.Close())

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=hello")

	_, err = Open(filepath.Join(t.TempDir(), "missing", "dir", "x.log"))
	assert.Error(t, err)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "short", Sanitize("short"))
	assert.Equal(t, 42, Sanitize(42))

	long := strings.Repeat("x", 150)
	got := Sanitize(long).(string)
	assert.True(t, strings.HasSuffix(got, "...[truncated]"))
	assert.Len(t, got, 100+len("...[truncated]"))
}
