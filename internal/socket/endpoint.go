package socket

import (
	"context"
	"errors"
	"net"
	"os"
	"strconv"
	"sync"

	"golang.org/x/sys/unix"

	werrors "github.com/Brownie44l1/webby/internal/errors"
)

// DefaultBacklog is the listen queue length used when none is configured.
const DefaultBacklog = 10000

// Endpoint is a listening IPv4 TCP socket. The zero value is not usable;
// create one with NewEndpoint.
type Endpoint struct {
	backlog  int
	resolver *net.Resolver

	mu     sync.Mutex
	ln     *net.TCPListener
	addr   net.Addr
	closed bool
}

// NewEndpoint returns an endpoint that will listen with the given backlog.
// A backlog below 1 selects DefaultBacklog.
func NewEndpoint(backlog int) *Endpoint {
	if backlog < 1 {
		backlog = DefaultBacklog
	}
	return &Endpoint{backlog: backlog, resolver: net.DefaultResolver}
}

// SetResolver replaces the resolver used by Create and by accepted
// connections for hostname lookups.
func (e *Endpoint) SetResolver(r *net.Resolver) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r == nil {
		r = net.DefaultResolver
	}
	e.resolver = r
}

// Create resolves name:port, then creates, binds and starts listening on the
// socket. An empty name listens on all interfaces. An endpoint can be
// created once; later calls fail with AlreadyCreated.
func (e *Endpoint) Create(ctx context.Context, name string, port uint16) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ln != nil || e.closed {
		return werrors.Newf(werrors.AlreadyCreated, "create", "endpoint for %s already exists", e.addrString())
	}

	ip, err := e.resolve(ctx, name)
	if err != nil {
		return err
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return werrors.New(werrors.SocketCreateFailure, "create", os.NewSyscallError("socket", err))
	}
	unix.CloseOnExec(fd)

	ln, err := e.listen(fd, ip, port)
	if err != nil {
		return err
	}

	e.ln = ln
	e.addr = ln.Addr()
	return nil
}

// listen consumes fd: it is either handed to the returned listener or closed.
func (e *Endpoint) listen(fd int, ip net.IP, port uint16) (*net.TCPListener, error) {
	// FileListener dups the descriptor, so f always closes the original
	f := os.NewFile(uintptr(fd), "webby-listener")
	defer f.Close()

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return nil, werrors.New(werrors.SocketConfigureFailure, "create", os.NewSyscallError("setsockopt", err))
	}

	sa := &unix.SockaddrInet4{Port: int(port)}
	copy(sa.Addr[:], ip.To4())
	if err := unix.Bind(fd, sa); err != nil {
		return nil, werrors.New(werrors.SocketBindFailure, "create", os.NewSyscallError("bind", err))
	}
	if err := unix.Listen(fd, e.backlog); err != nil {
		return nil, werrors.New(werrors.SocketListenFailure, "create", os.NewSyscallError("listen", err))
	}

	ln, err := net.FileListener(f)
	if err != nil {
		return nil, werrors.New(werrors.SocketListenFailure, "create", err)
	}
	tl, ok := ln.(*net.TCPListener)
	if !ok {
		ln.Close()
		return nil, werrors.Newf(werrors.SocketListenFailure, "create", "unexpected listener type %T", ln)
	}
	return tl, nil
}

func (e *Endpoint) resolve(ctx context.Context, name string) (net.IP, error) {
	if name == "" {
		return net.IPv4zero, nil
	}
	if ip := net.ParseIP(name); ip != nil {
		if ip.To4() == nil {
			return nil, werrors.Newf(werrors.DnsFailure, "resolve", "%s is not an IPv4 address", name)
		}
		return ip, nil
	}

	ips, err := e.resolver.LookupIP(ctx, "ip4", name)
	if err != nil {
		return nil, werrors.New(werrors.DnsFailure, "resolve", err)
	}
	for _, ip := range ips {
		if ip.To4() != nil {
			return ip, nil
		}
	}
	return nil, werrors.Newf(werrors.DnsFailure, "resolve", "no IPv4 address for %s", name)
}

// Accept blocks until a client connects. After Close it fails with
// ConnectionClosed.
func (e *Endpoint) Accept() (*Conn, error) {
	e.mu.Lock()
	ln, resolver := e.ln, e.resolver
	closed := e.closed
	e.mu.Unlock()

	if closed || ln == nil {
		return nil, werrors.New(werrors.ConnectionClosed, "accept", net.ErrClosed)
	}

	tc, err := ln.AcceptTCP()
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return nil, werrors.New(werrors.ConnectionClosed, "accept", err)
		}
		return nil, werrors.New(werrors.SocketAcceptFailure, "accept", err)
	}

	c, err := newConn(tc, resolver)
	if err != nil {
		tc.Close()
		return nil, err
	}
	return c, nil
}

// Close stops listening. Closing twice is a no-op.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	if e.ln == nil {
		return nil
	}
	if err := e.ln.Close(); err != nil {
		return werrors.New(werrors.SocketCloseFailure, "close", err)
	}
	return nil
}

// Addr returns the bound address, or nil before Create.
func (e *Endpoint) Addr() net.Addr {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addr
}

func (e *Endpoint) addrString() string {
	if e.addr == nil {
		return "closed endpoint"
	}
	return e.addr.String()
}

// Port returns the bound port, or 0 before Create.
func (e *Endpoint) Port() uint16 {
	addr, ok := e.Addr().(*net.TCPAddr)
	if !ok {
		return 0
	}
	return uint16(addr.Port)
}

// HostPort returns the bound address in host:port form.
func (e *Endpoint) HostPort() string {
	addr, ok := e.Addr().(*net.TCPAddr)
	if !ok {
		return ""
	}
	return net.JoinHostPort(addr.IP.String(), strconv.Itoa(addr.Port))
}
