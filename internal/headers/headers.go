package headers

import (
	"sort"
	"strings"
)

// field keeps the spelling a header was first seen with.
type field struct {
	name  string
	value string
}

// Headers maps case-insensitive header names to a single value.
type Headers struct {
	headers map[string]*field
}

func NewHeaders() *Headers {
	return &Headers{
		headers: make(map[string]*field),
	}
}

// Get returns the value stored under key, compared case-insensitively
func (h *Headers) Get(key string) (string, bool) {
	f, ok := h.headers[strings.ToLower(key)]
	if !ok {
		return "", false
	}
	return f.value, true
}

func (h *Headers) Has(key string) bool {
	_, ok := h.headers[strings.ToLower(key)]
	return ok
}

// Set stores value under key, replacing any previous value. The first
// spelling of the name is kept.
func (h *Headers) Set(key, value string) {
	lower := strings.ToLower(key)
	if f, ok := h.headers[lower]; ok {
		f.value = value
		return
	}
	h.headers[lower] = &field{name: key, value: value}
}

// Append continues the value stored under key, separated by one space.
// Appending to a missing header sets it.
func (h *Headers) Append(key, more string) {
	f, ok := h.headers[strings.ToLower(key)]
	if !ok {
		h.Set(key, more)
		return
	}
	f.value += " " + more
}

// Del removes a header
func (h *Headers) Del(key string) {
	delete(h.headers, strings.ToLower(key))
}

func (h *Headers) Len() int {
	return len(h.headers)
}

// Keys returns the header names as first seen, sorted case-insensitively.
func (h *Headers) Keys() []string {
	lowers := make([]string, 0, len(h.headers))
	for k := range h.headers {
		lowers = append(lowers, k)
	}
	sort.Strings(lowers)

	keys := make([]string, len(lowers))
	for i, k := range lowers {
		keys[i] = h.headers[k].name
	}
	return keys
}

// Each calls fn for every header in Keys order.
func (h *Headers) Each(fn func(name, value string)) {
	for _, name := range h.Keys() {
		fn(name, h.headers[strings.ToLower(name)].value)
	}
}

// ParseLine applies one line of a header block. last is the name touched by
// the previous line, or "" for the first line.
//
// Leading spaces are stripped. When the previous header's value ends with a
// comma the line continues that value. Otherwise the line is split at its
// first colon and stored, overwriting any earlier value with the same name.
// A line that is neither is dropped: kept reports false and last is returned
// unchanged.
func (h *Headers) ParseLine(line, last string) (name string, kept bool) {
	line = strings.TrimLeft(line, " ")

	if last != "" {
		if prev, ok := h.Get(last); ok && strings.HasSuffix(prev, ",") {
			h.Append(last, line)
			return last, true
		}
	}

	colon := strings.IndexByte(line, ':')
	if colon <= 0 {
		return last, false
	}

	name = line[:colon]
	h.Set(name, strings.TrimLeft(line[colon+1:], " "))
	return name, true
}

// ValidName reports whether name is a legal header field name token.
func ValidName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		if !isValidHeaderChar(name[i]) {
			return false
		}
	}
	return true
}

func isValidHeaderChar(b byte) bool {
	return (b >= 'A' && b <= 'Z') ||
		(b >= 'a' && b <= 'z') ||
		(b >= '0' && b <= '9') ||
		b == '!' || b == '#' || b == '$' || b == '%' || b == '&' ||
		b == '\'' || b == '*' || b == '+' || b == '-' || b == '.' ||
		b == '^' || b == '_' || b == '`' || b == '|' || b == '~'
}
