package request

import "strings"

// Method is a request method, or a set of methods when flags are combined.
type Method uint8

const (
	MethodUnrecognized Method = 0

	MethodConnect Method = 0x01
	MethodDelete  Method = 0x02
	MethodGet     Method = 0x04
	MethodHead    Method = 0x08
	MethodOptions Method = 0x10
	MethodPost    Method = 0x20
	MethodPut     Method = 0x40
	MethodTrace   Method = 0x80

	// MethodREST is the set a resource dispatcher answers to.
	MethodREST = MethodDelete | MethodGet | MethodPost | MethodPut
	MethodAll  Method = 0xFF
)

var methodNames = []struct {
	method Method
	name   string
}{
	{MethodConnect, "CONNECT"},
	{MethodDelete, "DELETE"},
	{MethodGet, "GET"},
	{MethodHead, "HEAD"},
	{MethodOptions, "OPTIONS"},
	{MethodPost, "POST"},
	{MethodPut, "PUT"},
	{MethodTrace, "TRACE"},
}

// ParseMethod maps a method token to its Method, ignoring case. Tokens
// outside the known set map to MethodUnrecognized.
func ParseMethod(token string) Method {
	for _, m := range methodNames {
		if strings.EqualFold(token, m.name) {
			return m.method
		}
	}
	return MethodUnrecognized
}

// Contains reports whether the set s includes m. The unrecognized method
// only belongs to MethodAll.
func (s Method) Contains(m Method) bool {
	if m == MethodUnrecognized {
		return s == MethodAll
	}
	return s&m == m
}

// Names lists the methods in the set in canonical order.
func (s Method) Names() []string {
	var names []string
	for _, m := range methodNames {
		if s&m.method != 0 {
			names = append(names, m.name)
		}
	}
	return names
}

func (s Method) String() string {
	if s == MethodUnrecognized {
		return "UNRECOGNIZED"
	}
	return strings.Join(s.Names(), "|")
}
