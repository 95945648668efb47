package headers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseAll(h *Headers, lines ...string) (dropped int) {
	last := ""
	for _, line := range lines {
		name, kept := h.ParseLine(line, last)
		if !kept {
			dropped++
		}
		last = name
	}
	return dropped
}

func TestHeaderParse(t *testing.T) {
	// Test: Valid single header
	h := NewHeaders()
	name, kept := h.ParseLine("Host: localhost:42069", "")
	assert.True(t, kept)
	assert.Equal(t, "Host", name)
	val, ok := h.Get("host")
	assert.True(t, ok)
	assert.Equal(t, "localhost:42069", val)

	// Test: Leading spaces stripped from line and value, trailing kept
	h = NewHeaders()
	parseAll(h, "   Host:   localhost:42069 ")
	val, ok = h.Get("Host")
	assert.True(t, ok)
	assert.Equal(t, "localhost:42069 ", val)

	// Test: Duplicate headers overwrite
	h = NewHeaders()
	parseAll(h, "Set-Cookie: a=1", "Set-Cookie: b=2")
	val, _ = h.Get("set-cookie")
	assert.Equal(t, "b=2", val)
	assert.Equal(t, 1, h.Len())

	// Test: Continuation after a trailing comma
	h = NewHeaders()
	dropped := parseAll(h, "X: a,", "  b")
	assert.Equal(t, 0, dropped)
	val, _ = h.Get("x")
	assert.Equal(t, "a, b", val)

	// Test: Continuation chains while values keep ending in commas
	h = NewHeaders()
	parseAll(h, "Accept: text/html,", "application/json,", "*/*", "Host: example.com")
	val, _ = h.Get("accept")
	assert.Equal(t, "text/html, application/json, */*", val)
	val, _ = h.Get("host")
	assert.Equal(t, "example.com", val)

	// Test: No colon and no eligible predecessor is dropped
	h = NewHeaders()
	dropped = parseAll(h, "InvalidHeader", "Host: example.com", "   continued")
	assert.Equal(t, 2, dropped)
	assert.Equal(t, 1, h.Len())
	val, _ = h.Get("host")
	assert.Equal(t, "example.com", val)

	// Test: Dropped line leaves last header unchanged
	h = NewHeaders()
	name, kept = h.ParseLine("garbage", "Host")
	assert.False(t, kept)
	assert.Equal(t, "Host", name)

	// Test: Empty name is dropped
	h = NewHeaders()
	_, kept = h.ParseLine(": value", "")
	assert.False(t, kept)
	assert.Equal(t, 0, h.Len())

	// Test: Case insensitive storage
	h = NewHeaders()
	parseAll(h, "Content-Type: application/json")
	val, ok = h.Get("CONTENT-TYPE")
	assert.True(t, ok)
	assert.Equal(t, "application/json", val)
	assert.True(t, h.Has("content-type"))

	// Test: Only the first colon splits
	h = NewHeaders()
	parseAll(h, "Host: example.com:8080")
	val, _ = h.Get("host")
	assert.Equal(t, "example.com:8080", val)

	// Test: Empty header value (allowed)
	h = NewHeaders()
	parseAll(h, "X-Empty:")
	val, ok = h.Get("x-empty")
	assert.True(t, ok)
	assert.Equal(t, "", val)
}

func TestHeaderMutation(t *testing.T) {
	// Test: Set keeps first spelling
	h := NewHeaders()
	h.Set("Content-Length", "1")
	h.Set("content-length", "2")
	assert.Equal(t, []string{"Content-Length"}, h.Keys())
	val, _ := h.Get("CONTENT-LENGTH")
	assert.Equal(t, "2", val)

	// Test: Append to missing header sets it
	h = NewHeaders()
	h.Append("X-Custom", "value1")
	h.Append("x-custom", "value2")
	val, _ = h.Get("X-Custom")
	assert.Equal(t, "value1 value2", val)

	// Test: Del
	h.Del("X-CUSTOM")
	assert.False(t, h.Has("x-custom"))
	assert.Equal(t, 0, h.Len())

	// Test: Get on non-existent header
	val, ok := h.Get("non-existent")
	assert.False(t, ok)
	assert.Equal(t, "", val)

	// Test: Keys sorted, Each visits in order
	h = NewHeaders()
	h.Set("Host", "x")
	h.Set("accept", "y")
	h.Set("Content-Type", "z")
	require.Equal(t, []string{"accept", "Content-Type", "Host"}, h.Keys())

	var seen []string
	h.Each(func(name, value string) {
		seen = append(seen, name+"="+value)
	})
	assert.Equal(t, []string{"accept=y", "Content-Type=z", "Host=x"}, seen)
}

func TestValidName(t *testing.T) {
	assert.True(t, ValidName("Content-Type"))
	assert.True(t, ValidName("X-Request-ID"))
	assert.False(t, ValidName(""))
	assert.False(t, ValidName("Ho st"))
	assert.False(t, ValidName("Host:"))
	assert.False(t, ValidName("X\r\nInjected"))
	assert.False(t, ValidName("HÂ©st"))
}
