// Package socket manages OS-level TCP descriptors: the shared connection
// handle with its block and line primitives, the listening endpoint, and
// the accepted peer connection.
package socket

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	werrors "github.com/Brownie44l1/webby/internal/errors"
)

// descriptor is the state shared by every owner of one socket.
type descriptor struct {
	conn   net.Conn
	raw    syscall.RawConn
	refs   atomic.Int32
	closed atomic.Bool
	once   sync.Once
	err    error
}

// Handle is one owner of a socket descriptor. Owners created with Share
// reference the same descriptor, which is closed exactly once when the
// last owner is closed.
//
// A single owner is not meant to be used from several goroutines at once
// for reads: lines are peeked and then consumed, so concurrent readers
// would interleave.
type Handle struct {
	fd       *descriptor
	released atomic.Bool
}

// NewHandle takes ownership of conn. conn must expose its descriptor
// through syscall.Conn (*net.TCPConn, *net.UnixConn).
func NewHandle(conn net.Conn) (*Handle, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return nil, werrors.Newf(werrors.SocketCreateFailure, "handle", "%T does not expose a descriptor", conn)
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return nil, werrors.New(werrors.SocketCreateFailure, "handle", err)
	}

	d := &descriptor{conn: conn, raw: raw}
	d.refs.Store(1)
	return &Handle{fd: d}, nil
}

// Share returns a new owner of the same descriptor.
func (h *Handle) Share() (*Handle, error) {
	if err := h.check("share"); err != nil {
		return nil, err
	}
	for {
		n := h.fd.refs.Load()
		if n <= 0 {
			return nil, werrors.New(werrors.ConnectionClosed, "share", nil)
		}
		if h.fd.refs.CompareAndSwap(n, n+1) {
			return &Handle{fd: h.fd}, nil
		}
	}
}

// Owners returns how many owners still hold the descriptor.
func (h *Handle) Owners() int {
	if h == nil || h.fd == nil {
		return 0
	}
	return int(h.fd.refs.Load())
}

// Closed reports whether this owner can no longer perform I/O.
func (h *Handle) Closed() bool {
	return h == nil || h.fd == nil || h.released.Load() || h.fd.closed.Load()
}

// Close releases this owner. The descriptor is closed when the last owner
// is released, and only that call reports the close error. Closing an owner
// twice, or a nil Handle, is a no-op.
func (h *Handle) Close() error {
	if h == nil || h.fd == nil {
		return nil
	}
	if !h.released.CompareAndSwap(false, true) {
		return nil
	}
	if h.fd.refs.Add(-1) > 0 {
		return nil
	}
	return h.fd.close()
}

func (d *descriptor) close() error {
	d.once.Do(func() {
		d.closed.Store(true)
		if err := d.conn.Close(); err != nil {
			d.err = werrors.New(werrors.SocketCloseFailure, "close", err)
		}
	})
	return d.err
}

func (h *Handle) check(op string) error {
	if h.Closed() {
		return werrors.New(werrors.ConnectionClosed, op, nil)
	}
	return nil
}

// ReadBlock receives up to len(buf) bytes. With peek set, the bytes stay in
// the socket's input queue and the next read returns them again. A result of
// 0 with a nil error means the peer shut down its side of the connection.
func (h *Handle) ReadBlock(buf []byte, peek bool) (int, error) {
	if err := h.check("read"); err != nil {
		return 0, err
	}
	if len(buf) == 0 {
		return 0, nil
	}

	flags := 0
	if peek {
		flags = unix.MSG_PEEK
	}
	n, err := h.fd.recv(buf, flags, nil)
	if err != nil {
		return 0, readError("read", err)
	}
	return n, nil
}

// WriteBlock performs a single send and returns how many bytes the kernel
// accepted, which may be fewer than len(buf).
func (h *Handle) WriteBlock(buf []byte) (int, error) {
	if err := h.check("write"); err != nil {
		return 0, err
	}
	if len(buf) == 0 {
		return 0, nil
	}

	var n int
	var opErr error
	err := h.fd.raw.Write(func(fd uintptr) bool {
		for {
			n, opErr = unix.Write(int(fd), buf)
			if opErr != unix.EINTR {
				break
			}
		}
		return opErr != unix.EAGAIN
	})
	if err == nil {
		err = opErr
	}
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return 0, werrors.New(werrors.ConnectionClosed, "write", err)
		}
		return 0, werrors.New(werrors.SocketWriteFailure, "write", err)
	}
	return n, nil
}

// Read implements io.Reader on top of ReadBlock.
func (h *Handle) Read(p []byte) (int, error) {
	n, err := h.ReadBlock(p, false)
	if err != nil {
		return n, err
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write implements io.Writer, looping over WriteBlock until p is delivered.
func (h *Handle) Write(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := h.WriteBlock(p[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.ErrShortWrite
		}
	}
	return total, nil
}

func (h *Handle) SetReadDeadline(t time.Time) error {
	if err := h.check("set deadline"); err != nil {
		return err
	}
	return h.fd.conn.SetReadDeadline(t)
}

func (h *Handle) SetWriteDeadline(t time.Time) error {
	if err := h.check("set deadline"); err != nil {
		return err
	}
	return h.fd.conn.SetWriteDeadline(t)
}

func (h *Handle) LocalAddr() net.Addr {
	if h == nil || h.fd == nil {
		return nil
	}
	return h.fd.conn.LocalAddr()
}

func (h *Handle) RemoteAddr() net.Addr {
	if h == nil || h.fd == nil {
		return nil
	}
	return h.fd.conn.RemoteAddr()
}

// recv receives into buf with the given flags. When wait is non-nil and
// returns true for a successful receive of n bytes, the call parks until
// the descriptor becomes readable again and retries.
func (d *descriptor) recv(buf []byte, flags int, wait func(fd, n int) bool) (int, error) {
	var n int
	var opErr error
	err := d.raw.Read(func(fd uintptr) bool {
		for {
			n, _, opErr = unix.Recvfrom(int(fd), buf, flags)
			if opErr != unix.EINTR {
				break
			}
		}
		if opErr == unix.EAGAIN {
			return false
		}
		if opErr != nil || wait == nil {
			return true
		}
		return !wait(int(fd), n)
	})
	if err == nil {
		err = opErr
	}
	if err != nil || n < 0 {
		return 0, err
	}
	return n, nil
}

func readError(op string, err error) error {
	if errors.Is(err, net.ErrClosed) {
		return werrors.New(werrors.ConnectionClosed, op, err)
	}
	// Deadline expiry stays reachable through errors.Is(err, os.ErrDeadlineExceeded)
	return werrors.New(werrors.SocketReadFailure, op, err)
}
