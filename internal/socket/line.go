package socket

import (
	"io"

	"golang.org/x/sys/unix"

	werrors "github.com/Brownie44l1/webby/internal/errors"
)

// MaxLineLength is the most a single line, terminator included, may occupy.
const MaxLineLength = smallBufferSize

// ReadLine returns the next CRLF-terminated line without its terminator.
//
// The line is located by peeking, so nothing past the terminator is ever
// consumed: the bytes that follow stay queued for the next read. A line that
// does not fit in MaxLineLength fails with LineTooLong, and a peer that stops
// sending before a terminator arrives fails with LineNotFound. A partial line
// is never returned.
func (h *Handle) ReadLine() (string, error) {
	if err := h.check("read line"); err != nil {
		return "", err
	}

	buf := GetBuffer(MaxLineLength)
	defer PutBuffer(buf)

	seen := 0
	for {
		// Park until more than `seen` bytes are queued or the peer is done
		n, err := h.fd.recv(buf, unix.MSG_PEEK, func(fd, n int) bool {
			return n > 0 && n == seen && !peerShutdown(fd)
		})
		if err != nil {
			return "", readError("read line", err)
		}
		if n == 0 {
			return "", werrors.New(werrors.ConnectionClosed, "read line", io.EOF)
		}

		if end := lineEnd(buf[:n]); end > 0 {
			if err := h.consume(buf[:end]); err != nil {
				return "", err
			}
			return string(buf[:end-2]), nil
		}

		if n == len(buf) {
			return "", werrors.Newf(werrors.LineTooLong, "read line", "no line terminator within %d bytes", n)
		}
		if n == seen {
			return "", werrors.Newf(werrors.LineNotFound, "read line", "peer stopped after %d bytes without a line terminator", n)
		}
		seen = n
	}
}

// lineEnd returns the offset just past the second CR/LF character in b, or 0
// when fewer than two are present.
func lineEnd(b []byte) int {
	found := 0
	for i, c := range b {
		if c == '\r' || c == '\n' {
			found++
			if found == 2 {
				return i + 1
			}
		}
	}
	return 0
}

// consume reads exactly len(buf) bytes that a previous peek already saw.
func (h *Handle) consume(buf []byte) error {
	for read := 0; read < len(buf); {
		n, err := h.fd.recv(buf[read:], 0, nil)
		if err != nil {
			return readError("read line", err)
		}
		if n == 0 {
			return werrors.New(werrors.ConnectionClosed, "read line", io.ErrUnexpectedEOF)
		}
		read += n
	}
	return nil
}
