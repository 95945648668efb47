package response

// StatusCode represents HTTP status codes
type StatusCode int

const (
	// 1xx Informational
	StatusContinue           StatusCode = 100
	StatusSwitchingProtocols StatusCode = 101

	// 2xx Success
	StatusOK                   StatusCode = 200
	StatusCreated              StatusCode = 201
	StatusAccepted             StatusCode = 202
	StatusNonAuthoritativeInfo StatusCode = 203
	StatusNoContent            StatusCode = 204
	StatusResetContent         StatusCode = 205
	StatusPartialContent       StatusCode = 206

	// 3xx Redirection
	StatusMultipleChoices   StatusCode = 300
	StatusMovedPermanently  StatusCode = 301
	StatusFound             StatusCode = 302
	StatusSeeOther          StatusCode = 303
	StatusNotModified       StatusCode = 304
	StatusTemporaryRedirect StatusCode = 307
	StatusPermanentRedirect StatusCode = 308

	// 4xx Client Error
	StatusBadRequest            StatusCode = 400
	StatusUnauthorized          StatusCode = 401
	StatusForbidden             StatusCode = 403
	StatusNotFound              StatusCode = 404
	StatusMethodNotAllowed      StatusCode = 405
	StatusNotAcceptable         StatusCode = 406
	StatusRequestTimeout        StatusCode = 408
	StatusConflict              StatusCode = 409
	StatusGone                  StatusCode = 410
	StatusLengthRequired        StatusCode = 411
	StatusRequestEntityTooLarge StatusCode = 413
	StatusRequestURITooLong     StatusCode = 414
	StatusUnsupportedMediaType  StatusCode = 415
	StatusTeapot                StatusCode = 418 // RFC 2324
	StatusUnprocessableEntity   StatusCode = 422
	StatusTooManyRequests       StatusCode = 429
	StatusHeaderFieldsTooLarge  StatusCode = 431

	// 5xx Server Error
	StatusInternalServerError     StatusCode = 500
	StatusNotImplemented          StatusCode = 501
	StatusBadGateway              StatusCode = 502
	StatusServiceUnavailable      StatusCode = 503
	StatusGatewayTimeout          StatusCode = 504
	StatusHTTPVersionNotSupported StatusCode = 505
)

var statusText = map[StatusCode]string{
	StatusContinue:           "Continue",
	StatusSwitchingProtocols: "Switching Protocols",

	StatusOK:                   "OK",
	StatusCreated:              "Created",
	StatusAccepted:             "Accepted",
	StatusNonAuthoritativeInfo: "Non-Authoritative Information",
	StatusNoContent:            "No Content",
	StatusResetContent:         "Reset Content",
	StatusPartialContent:       "Partial Content",

	StatusMultipleChoices:   "Multiple Choices",
	StatusMovedPermanently:  "Moved Permanently",
	StatusFound:             "Found",
	StatusSeeOther:          "See Other",
	StatusNotModified:       "Not Modified",
	StatusTemporaryRedirect: "Temporary Redirect",
	StatusPermanentRedirect: "Permanent Redirect",

	StatusBadRequest:            "Bad Request",
	StatusUnauthorized:          "Unauthorized",
	StatusForbidden:             "Forbidden",
	StatusNotFound:              "Not Found",
	StatusMethodNotAllowed:      "Method Not Allowed",
	StatusNotAcceptable:         "Not Acceptable",
	StatusRequestTimeout:        "Request Timeout",
	StatusConflict:              "Conflict",
	StatusGone:                  "Gone",
	StatusLengthRequired:        "Length Required",
	StatusRequestEntityTooLarge: "Request Entity Too Large",
	StatusRequestURITooLong:     "Request URI Too Long",
	StatusUnsupportedMediaType:  "Unsupported Media Type",
	StatusTeapot:                "I'm a teapot",
	StatusUnprocessableEntity:   "Unprocessable Entity",
	StatusTooManyRequests:       "Too Many Requests",
	StatusHeaderFieldsTooLarge:  "Request Header Fields Too Large",

	StatusInternalServerError:     "Internal Server Error",
	StatusNotImplemented:          "Not Implemented",
	StatusBadGateway:              "Bad Gateway",
	StatusServiceUnavailable:      "Service Unavailable",
	StatusGatewayTimeout:          "Gateway Timeout",
	StatusHTTPVersionNotSupported: "HTTP Version Not Supported",
}

// StatusText returns the reason phrase for a status code, or "" if unknown.
func StatusText(code StatusCode) string {
	return statusText[code]
}

func (code StatusCode) IsSuccess() bool {
	return code >= 200 && code < 300
}

func (code StatusCode) IsRedirect() bool {
	return code >= 300 && code < 400
}

func (code StatusCode) IsClientError() bool {
	return code >= 400 && code < 500
}

func (code StatusCode) IsServerError() bool {
	return code >= 500 && code < 600
}

// IsError returns true for 4xx or 5xx status codes
func (code StatusCode) IsError() bool {
	return code.IsClientError() || code.IsServerError()
}
