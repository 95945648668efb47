package socket

import (
	"context"
	"net"
	"net/netip"
	"strings"

	werrors "github.com/Brownie44l1/webby/internal/errors"
)

// Conn is an accepted client connection: the owning handle plus the peer
// address recorded at accept time.
type Conn struct {
	*Handle
	peer     netip.AddrPort
	resolver *net.Resolver
}

// NewConn wraps an already connected socket.
func NewConn(c net.Conn) (*Conn, error) {
	return newConn(c, net.DefaultResolver)
}

func newConn(c net.Conn, resolver *net.Resolver) (*Conn, error) {
	h, err := NewHandle(c)
	if err != nil {
		return nil, err
	}

	var peer netip.AddrPort
	if addr, ok := c.RemoteAddr().(*net.TCPAddr); ok {
		peer = addr.AddrPort()
	}
	return &Conn{Handle: h, peer: peer, resolver: resolver}, nil
}

// Peer returns the peer address recorded at accept time.
func (c *Conn) Peer() netip.AddrPort {
	return c.peer
}

// ClientIP returns the peer's address in literal form.
func (c *Conn) ClientIP() (string, error) {
	addr := c.peer.Addr()
	if !addr.IsValid() {
		return "", werrors.Newf(werrors.InvalidAddress, "client ip", "no peer address recorded")
	}
	return addr.Unmap().String(), nil
}

// ClientHostname performs a reverse lookup of the peer address.
func (c *Conn) ClientHostname(ctx context.Context) (string, error) {
	ip, err := c.ClientIP()
	if err != nil {
		return "", err
	}

	names, err := c.resolver.LookupAddr(ctx, ip)
	if err != nil {
		return "", werrors.New(werrors.HostnameLookupFailure, "client hostname", err)
	}
	if len(names) == 0 {
		return "", werrors.Newf(werrors.HostnameLookupFailure, "client hostname", "no names for %s", ip)
	}
	return strings.TrimSuffix(names[0], "."), nil
}
