package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	"github.com/Brownie44l1/webby/internal/config"
	"github.com/Brownie44l1/webby/internal/router"
	"github.com/Brownie44l1/webby/internal/socket"
)

var ErrServerClosed = errors.New("server closed")

const hostnameLookupTimeout = 2 * time.Second

type Server struct {
	Address          string
	Port             uint16
	Backlog          int
	MaxConnections   int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	ResolveHostnames bool

	// Rate limiting per client, disabled when RateLimit is 0
	RateLimit float64
	RateBurst int

	ErrorLog  logr.Logger
	AccessLog logr.Logger

	handler router.Handler
	metrics *Metrics

	mu       sync.Mutex
	endpoint *socket.Endpoint
	ready    chan struct{}
	done     chan struct{}
	closed   atomic.Bool
	conns    sync.WaitGroup
}

// New creates a server for cfg that dispatches requests to handler.
func New(cfg *config.Config, handler router.Handler) *Server {
	return &Server{
		Address:          cfg.Address,
		Port:             cfg.Port,
		Backlog:          cfg.Backlog,
		MaxConnections:   cfg.MaxConnections,
		ReadTimeout:      cfg.ReadTimeout,
		WriteTimeout:     cfg.WriteTimeout,
		ResolveHostnames: cfg.ResolveHostnames,
		RateLimit:        cfg.RateLimit,
		RateBurst:        cfg.RateBurst,
		ErrorLog:         logr.Discard(),
		AccessLog:        logr.Discard(),
		handler:          handler,
		metrics:          NewMetrics(),
		ready:            make(chan struct{}),
		done:             make(chan struct{}),
	}
}

func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Ready is closed once the server is listening.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the listening address, or nil before the server is ready.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.endpoint == nil {
		return nil
	}
	return s.endpoint.Addr()
}

// ListenAndServe creates the listening endpoint and serves connections until
// Shutdown or Close is called or ctx is done. Endpoint creation errors are
// returned as is; once serving, a stopped server returns nil.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.closed.Load() {
		return ErrServerClosed
	}

	ep := socket.NewEndpoint(s.Backlog)
	if err := ep.Create(ctx, s.Address, s.Port); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed.Load() || s.endpoint != nil {
		s.mu.Unlock()
		ep.Close()
		return ErrServerClosed
	}
	s.endpoint = ep
	close(s.ready)
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	s.ErrorLog.Info("listening", "addr", ep.HostPort(), "backlog", s.Backlog, "max_connections", s.MaxConnections)
	return s.serve(ep, s.chain())
}

// serve runs the accept loop. A connection slot is taken before accepting so
// that clients over the limit wait in the listen backlog.
func (s *Server) serve(ep *socket.Endpoint, handler router.Handler) error {
	limit := s.MaxConnections
	if limit < 1 {
		limit = 1
	}
	slots := make(chan struct{}, limit)

	var delay time.Duration
	for {
		select {
		case slots <- struct{}{}:
		case <-s.done:
			return nil
		}

		conn, err := ep.Accept()
		if err != nil {
			<-slots
			if s.closed.Load() {
				return nil
			}

			if delay == 0 {
				delay = 5 * time.Millisecond
			} else if delay *= 2; delay > time.Second {
				delay = time.Second
			}
			s.ErrorLog.Error(err, "accept failed", "retry_in", delay)
			select {
			case <-time.After(delay):
			case <-s.done:
				return nil
			}
			continue
		}
		delay = 0

		s.mu.Lock()
		if s.closed.Load() {
			s.mu.Unlock()
			conn.Close()
			<-slots
			return nil
		}
		s.conns.Add(1)
		s.mu.Unlock()

		go func() {
			defer func() {
				<-slots
				s.conns.Done()
			}()
			s.serveConn(conn, handler)
		}()
	}
}

// chain assembles the middleware every request passes through.
func (s *Server) chain() router.Handler {
	mws := []Middleware{
		AccessLog(s.AccessLog),
		RecordMetrics(s.metrics),
		ConnectionID(),
	}
	if s.RateLimit > 0 {
		mws = append(mws, RateLimit(NewRateLimiter(s.RateLimit, s.RateBurst)))
	}
	mws = append(mws, Recovery(s.ErrorLog))
	return Chain(s.handler, mws...)
}

// Close stops accepting connections immediately. Connections in flight are
// not waited for.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(s.done)
	if s.endpoint == nil {
		return nil
	}
	return s.endpoint.Close()
}

// Shutdown stops accepting connections and waits for those in flight to
// finish, or for ctx to be done.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Close()

	finished := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
