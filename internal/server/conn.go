package server

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	werrors "github.com/Brownie44l1/webby/internal/errors"
	"github.com/Brownie44l1/webby/internal/logger"
	"github.com/Brownie44l1/webby/internal/request"
	"github.com/Brownie44l1/webby/internal/response"
	"github.com/Brownie44l1/webby/internal/router"
	"github.com/Brownie44l1/webby/internal/socket"
)

// serveConn handles the single request a connection carries.
func (s *Server) serveConn(conn *socket.Conn, handler router.Handler) {
	defer conn.Close()

	s.metrics.connectionOpened()
	defer s.metrics.connectionClosed()

	id := uuid.NewString()
	ip, err := conn.ClientIP()
	if err != nil {
		s.ErrorLog.Error(err, "rejecting connection", "conn_id", id)
		return
	}
	log := s.ErrorLog.WithValues("conn_id", id, "client_ip", ip)
	log = s.lookupHostname(conn, log)
	log.V(logger.Debug).Info("connection accepted")

	if s.ReadTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(s.ReadTimeout))
	}

	req, err := request.Decode(conn)
	if err != nil {
		s.metrics.DecodeErrors.Add(1)
		s.handleBadRequest(conn, log, err)
		return
	}
	req.RemoteAddr = ip
	req.ConnectionID = id
	if req.DroppedHeaders > 0 {
		log.V(logger.Debug).Info("dropped malformed header lines", "count", req.DroppedHeaders)
	}

	owner, err := conn.Share()
	if err != nil {
		log.Error(err, "sharing connection for response")
		return
	}
	w := response.New(owner)

	if s.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(s.WriteTimeout))
	}
	if host, ok := req.Host(); ok {
		w.SetHeader("Location", "http://"+host+req.Path)
	}

	handler(w, req)

	if err := w.Finish(); err != nil {
		log.Error(err, "finishing response", "path", logger.Sanitize(req.Path))
	}
}

// lookupHostname adds the peer's hostname to log when lookups are enabled.
// A failed lookup is not an error for the connection.
func (s *Server) lookupHostname(conn *socket.Conn, log logr.Logger) logr.Logger {
	if !s.ResolveHostnames {
		return log
	}

	ctx, cancel := context.WithTimeout(context.Background(), hostnameLookupTimeout)
	defer cancel()

	host, err := conn.ClientHostname(ctx)
	if err != nil {
		log.V(logger.Debug).Info("hostname lookup failed", "err", err.Error())
		return log
	}
	return log.WithValues("hostname", host)
}

// handleBadRequest logs a decode failure and answers 400 when the client
// sent something unparseable. Transport failures only close the connection.
func (s *Server) handleBadRequest(conn *socket.Conn, log logr.Logger, err error) {
	if !werrors.IsProtocol(err) {
		if werrors.KindOf(err) == werrors.ConnectionClosed {
			log.V(logger.Debug).Info("connection closed before a request arrived")
		} else {
			log.Error(err, "reading request")
		}
		return
	}

	log.Info("bad request", "reason", err.Error())
	owner, serr := conn.Share()
	if serr != nil {
		return
	}
	w := response.New(owner)
	if s.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(s.WriteTimeout))
	}
	w.Error(response.StatusBadRequest, werrors.KindOf(err).String())
	w.Finish()
	discardPending(conn)
}

const (
	drainTimeout = 100 * time.Millisecond
	drainLimit   = 64 * 1024
)

// discardPending reads what the client already sent so that closing the
// socket ends with a FIN rather than a reset that could destroy the response.
func discardPending(conn *socket.Conn) {
	conn.SetReadDeadline(time.Now().Add(drainTimeout))
	buf := socket.GetBuffer(drainLimit / 2)
	defer socket.PutBuffer(buf)

	for total := 0; total < drainLimit; {
		n, err := conn.ReadBlock(buf, false)
		if err != nil || n == 0 {
			return
		}
		total += n
	}
}
