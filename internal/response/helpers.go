package response

import (
	"fmt"
	"strconv"
)

// Text writes a complete plain text response
func (r *Response) Text(code StatusCode, body string) error {
	return r.Bytes(code, "text/plain; charset=utf-8", []byte(body))
}

// HTML writes a complete HTML response
func (r *Response) HTML(code StatusCode, body string) error {
	return r.Bytes(code, "text/html; charset=utf-8", []byte(body))
}

// JSON writes an already encoded JSON body
func (r *Response) JSON(code StatusCode, body string) error {
	return r.Bytes(code, "application/json; charset=utf-8", []byte(body))
}

// Error writes a standard error response. An empty message uses the reason phrase.
func (r *Response) Error(code StatusCode, message string) error {
	if message == "" {
		message = StatusText(code)
		if message == "" {
			message = "Unknown Error"
		}
	}
	return r.Text(code, fmt.Sprintf("Error %d: %s\n", code, message))
}

// Redirect sends an empty response pointing at location.
func (r *Response) Redirect(code StatusCode, location string) error {
	if !code.IsRedirect() {
		return fmt.Errorf("invalid redirect status code: %d", code)
	}
	r.SetStatus(code)
	if err := r.SetHeader("Location", location); err != nil {
		return err
	}
	return r.Bytes(code, "", nil)
}

// Bytes writes a response with arbitrary content
func (r *Response) Bytes(code StatusCode, contentType string, data []byte) error {
	r.SetStatus(code)
	if contentType != "" {
		if err := r.SetHeader("Content-Type", contentType); err != nil {
			return err
		}
	}
	if err := r.SetHeader("Content-Length", strconv.Itoa(len(data))); err != nil {
		return err
	}
	return r.WriteBlock(data)
}
