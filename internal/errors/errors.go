package errors

import (
	"errors"
	"fmt"
)

// Kind identifies what went wrong, independent of the operation that failed.
type Kind int

const (
	Unknown Kind = iota

	// Transport
	SocketCreateFailure
	SocketConfigureFailure
	SocketBindFailure
	SocketListenFailure
	SocketAcceptFailure
	SocketReadFailure
	SocketWriteFailure
	SocketCloseFailure
	ConnectionClosed
	InvalidAddress

	// Resolution
	DnsFailure
	HostnameLookupFailure

	// Protocol
	MalformedRequestLine
	LineNotFound
	LineTooLong
	TooManyHeaders

	// Configuration
	AlreadyCreated
	InvalidConfig
)

// Class groups kinds by how callers should react to them.
type Class int

const (
	ClassUnknown Class = iota
	ClassTransport
	ClassResolution
	ClassProtocol
	ClassConfiguration
)

func (c Class) String() string {
	switch c {
	case ClassTransport:
		return "transport"
	case ClassResolution:
		return "resolution"
	case ClassProtocol:
		return "protocol"
	case ClassConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Class returns the class the kind belongs to.
func (k Kind) Class() Class {
	switch {
	case k >= SocketCreateFailure && k <= InvalidAddress:
		return ClassTransport
	case k == DnsFailure || k == HostnameLookupFailure:
		return ClassResolution
	case k >= MalformedRequestLine && k <= TooManyHeaders:
		return ClassProtocol
	case k == AlreadyCreated || k == InvalidConfig:
		return ClassConfiguration
	default:
		return ClassUnknown
	}
}

func (k Kind) String() string {
	switch k {
	case SocketCreateFailure:
		return "socket creation failed"
	case SocketConfigureFailure:
		return "socket configuration failed"
	case SocketBindFailure:
		return "socket bind failed"
	case SocketListenFailure:
		return "socket listen failed"
	case SocketAcceptFailure:
		return "socket accept failed"
	case SocketReadFailure:
		return "socket read failed"
	case SocketWriteFailure:
		return "socket write failed"
	case SocketCloseFailure:
		return "socket close failed"
	case ConnectionClosed:
		return "connection closed"
	case InvalidAddress:
		return "invalid peer address"
	case DnsFailure:
		return "address resolution failed"
	case HostnameLookupFailure:
		return "hostname lookup failed"
	case MalformedRequestLine:
		return "malformed request line"
	case LineNotFound:
		return "line not found"
	case LineTooLong:
		return "line too long"
	case TooManyHeaders:
		return "too many header lines"
	case AlreadyCreated:
		return "endpoint already created"
	case InvalidConfig:
		return "invalid configuration"
	default:
		return fmt.Sprintf("unknown error kind: %d", int(k))
	}
}

// Error lets a bare Kind be used as an errors.Is target.
func (k Kind) Error() string {
	return k.String()
}

// Error is the error type returned by the socket, request and config packages.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// New creates an Error for op. err may be nil.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf creates an Error whose cause is a formatted message.
func Newf(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	msg := e.Kind.Class().String() + " error: " + e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports a match when target is the same Kind, or an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case Kind:
		return e.Kind == t
	case *Error:
		return e.Kind == t.Kind
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// ClassOf returns the class of err.
func ClassOf(err error) Class {
	return KindOf(err).Class()
}

func IsTransport(err error) bool {
	return ClassOf(err) == ClassTransport
}

func IsResolution(err error) bool {
	return ClassOf(err) == ClassResolution
}

func IsProtocol(err error) bool {
	return ClassOf(err) == ClassProtocol
}

func IsConfiguration(err error) bool {
	return ClassOf(err) == ClassConfiguration
}
