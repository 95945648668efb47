package request

import (
	"strings"

	werrors "github.com/Brownie44l1/webby/internal/errors"
	"github.com/Brownie44l1/webby/internal/headers"
)

// MaxHeaderLines caps the number of header lines a request may carry.
const MaxHeaderLines = 1000

// Source is the connection a request is decoded from. *socket.Handle
// implements it.
type Source interface {
	ReadLine() (string, error)
	ReadBlock(buf []byte, peek bool) (int, error)
}

// Request is one decoded request head. The body, if any, is left unread on
// the connection and is available through ReadBlock.
type Request struct {
	Method      Method
	MethodToken string
	Path        string
	Version     string
	Headers     *headers.Headers

	// Route is the routing prefix that matched, set by the router.
	Route string

	// DroppedHeaders counts header lines that were neither a field nor a
	// continuation.
	DroppedHeaders int

	// Set by the server for the connection the request arrived on.
	RemoteAddr   string
	ConnectionID string

	src Source
}

// SetRoute records the prefix the request was routed by.
func (r *Request) SetRoute(route string) {
	r.Route = route
}

// ReadBlock reads raw bytes following the header block.
func (r *Request) ReadBlock(buf []byte, peek bool) (int, error) {
	if r.src == nil {
		return 0, werrors.New(werrors.ConnectionClosed, "read body", nil)
	}
	return r.src.ReadBlock(buf, peek)
}

// Host returns the Host header, if present.
func (r *Request) Host() (string, bool) {
	return r.Headers.Get("Host")
}

// Decode reads one request head from src: the request line, then header
// lines up to the first empty line.
func Decode(src Source) (*Request, error) {
	line, err := src.ReadLine()
	if err != nil {
		return nil, err
	}

	req, err := parseRequestLine(line)
	if err != nil {
		return nil, err
	}
	req.src = src

	if err := req.readHeaders(src); err != nil {
		return nil, err
	}
	return req, nil
}

// parseRequestLine splits "METHOD <junk>/path VERSION". Anything between the
// method and the first slash is skipped, and the version is not validated.
func parseRequestLine(line string) (*Request, error) {
	sp := strings.IndexByte(line, ' ')
	if sp < 0 {
		return nil, werrors.Newf(werrors.MalformedRequestLine, "decode", "no method separator in %q", line)
	}
	token := line[:sp]

	slash := strings.IndexByte(line[sp:], '/')
	if slash < 0 {
		return nil, werrors.Newf(werrors.MalformedRequestLine, "decode", "no path in %q", line)
	}
	rest := line[sp+slash:]

	end := strings.IndexByte(rest, ' ')
	if end < 0 {
		return nil, werrors.Newf(werrors.MalformedRequestLine, "decode", "no version separator in %q", line)
	}

	return &Request{
		Method:      ParseMethod(token),
		MethodToken: token,
		Path:        rest[:end],
		Version:     rest[end+1:],
		Headers:     headers.NewHeaders(),
	}, nil
}

func (r *Request) readHeaders(src Source) error {
	last := ""
	for count := 0; ; count++ {
		line, err := src.ReadLine()
		if err != nil {
			return err
		}
		if line == "" {
			return nil
		}
		if count == MaxHeaderLines {
			return werrors.Newf(werrors.TooManyHeaders, "decode", "more than %d header lines", MaxHeaderLines)
		}

		name, kept := r.Headers.ParseLine(line, last)
		if !kept {
			r.DroppedHeaders++
		}
		last = name
	}
}
