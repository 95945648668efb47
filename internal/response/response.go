package response

import (
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Brownie44l1/webby/internal/headers"
)

// DateFormat is the RFC 1123 form used for the Date header.
const DateFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

var (
	ErrMissingContentLength = errors.New("response has no Content-Length")
	ErrHeadersSent          = errors.New("response headers already sent")
	ErrFinished             = errors.New("response already finished")
	ErrInvalidHeader        = errors.New("invalid header field")
)

// Conn is the connection a response is written to. The response owns it and
// closes it on Finish.
type Conn interface {
	io.Writer
	Close() error
}

// Response serializes one HTTP/1.x response: the status line and headers are
// sent with the first body block, or by Finish when there is no body.
type Response struct {
	conn    Conn
	status  StatusCode
	reason  string
	version string
	headers *headers.Headers

	headersSent bool
	finished    bool
	written     int64
	err         error

	now func() time.Time
}

// New binds a response to conn. The status defaults to 200 OK.
func New(conn Conn) *Response {
	return &Response{
		conn:    conn,
		status:  StatusOK,
		version: "1.1",
		headers: headers.NewHeaders(),
		now:     time.Now,
	}
}

// SetStatus sets the status code. The reason phrase follows it unless one
// was set with SetReason.
func (r *Response) SetStatus(code StatusCode) {
	r.status = code
}

func (r *Response) SetReason(reason string) {
	r.reason = reason
}

// SetVersion sets the protocol version written in the status line, e.g. "1.0".
func (r *Response) SetVersion(version string) {
	r.version = version
}

// SetHeader sets a header to be sent with the head. Names must be valid
// tokens and values must not contain line breaks.
func (r *Response) SetHeader(name, value string) error {
	if r.headersSent {
		return ErrHeadersSent
	}
	if !headers.ValidName(name) || strings.ContainsAny(value, "\r\n") {
		return ErrInvalidHeader
	}
	r.headers.Set(name, value)
	return nil
}

// Header returns a header set on the response.
func (r *Response) Header(name string) (string, bool) {
	return r.headers.Get(name)
}

func (r *Response) Status() StatusCode {
	return r.status
}

// Reason returns the reason phrase that is or will be sent.
func (r *Response) Reason() string {
	if r.reason != "" {
		return r.reason
	}
	return StatusText(r.status)
}

func (r *Response) HeadersSent() bool {
	return r.headersSent
}

// BytesWritten counts body bytes delivered so far.
func (r *Response) BytesWritten() int64 {
	return r.written
}

// Err returns the first write error, if any.
func (r *Response) Err() error {
	return r.err
}

// WriteBlock writes data as part of the body. The first call sends the head,
// which requires a Content-Length header.
func (r *Response) WriteBlock(data []byte) error {
	if r.finished {
		return ErrFinished
	}
	if !r.headersSent {
		if !r.headers.Has("Content-Length") {
			return ErrMissingContentLength
		}
		if err := r.sendHead(); err != nil {
			return err
		}
	}
	if len(data) == 0 {
		return nil
	}

	n, err := r.conn.Write(data)
	r.written += int64(n)
	if err != nil {
		r.err = err
		return err
	}
	return nil
}

// Write implements io.Writer over WriteBlock.
func (r *Response) Write(p []byte) (int, error) {
	if err := r.WriteBlock(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Finish sends the head if nothing was sent yet, with Content-Length 0 when
// none was set, and releases the connection. Calling it again is a no-op.
func (r *Response) Finish() error {
	if r.finished {
		return nil
	}
	r.finished = true

	var err error
	if !r.headersSent && r.err == nil {
		if !r.headers.Has("Content-Length") {
			r.headers.Set("Content-Length", "0")
		}
		err = r.sendHead()
	}
	if cerr := r.conn.Close(); err == nil {
		err = cerr
	}
	return err
}

func (r *Response) sendHead() error {
	var b strings.Builder
	b.WriteString("HTTP/")
	b.WriteString(r.version)
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(int(r.status)))
	b.WriteByte(' ')
	b.WriteString(r.Reason())
	b.WriteString("\r\n")

	if !r.headers.Has("Date") {
		r.headers.Set("Date", r.now().UTC().Format(DateFormat))
	}
	r.headers.Each(func(name, value string) {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	})
	b.WriteString("\r\n")

	r.headersSent = true
	if _, err := io.WriteString(r.conn, b.String()); err != nil {
		r.err = err
		return err
	}
	return nil
}
