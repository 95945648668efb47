package server

import (
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/time/rate"

	"github.com/Brownie44l1/webby/internal/logger"
	"github.com/Brownie44l1/webby/internal/request"
	"github.com/Brownie44l1/webby/internal/response"
	"github.com/Brownie44l1/webby/internal/router"
)

// Middleware wraps a handler with extra behavior.
type Middleware func(router.Handler) router.Handler

// Chain wraps h so that the first middleware runs outermost.
func Chain(h router.Handler, mws ...Middleware) router.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Recovery turns a handler panic into a 500 response when nothing has been
// sent yet.
func Recovery(log logr.Logger) Middleware {
	return func(next router.Handler) router.Handler {
		return func(w *response.Response, r *request.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error(fmt.Errorf("panic: %v", rec), "handler panic recovered",
						"conn_id", r.ConnectionID,
						"path", logger.Sanitize(r.Path),
						"stack", string(debug.Stack()),
					)
					if !w.HeadersSent() {
						w.Error(response.StatusInternalServerError, "")
					}
				}
			}()

			next(w, r)
		}
	}
}

// AccessLog writes one line per handled request.
func AccessLog(log logr.Logger) Middleware {
	return func(next router.Handler) router.Handler {
		return func(w *response.Response, r *request.Request) {
			start := time.Now()

			next(w, r)

			log.Info("request handled",
				"method", r.MethodToken,
				"path", logger.Sanitize(r.Path),
				"route", r.Route,
				"status", int(w.Status()),
				"bytes", w.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"client_ip", r.RemoteAddr,
				"conn_id", r.ConnectionID,
			)
		}
	}
}

// RecordMetrics counts requests, status classes and latency.
func RecordMetrics(m *Metrics) Middleware {
	return func(next router.Handler) router.Handler {
		return func(w *response.Response, r *request.Request) {
			start := time.Now()

			next(w, r)

			m.RecordRequest(w.Status(), w.BytesWritten(), time.Since(start))
		}
	}
}

// RateLimiter keeps one token bucket per client address.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*client
	limit    rate.Limit
	burst    int

	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows each client perSecond requests on average with
// bursts of up to burst.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters:  make(map[string]*client),
		limit:     rate.Limit(perSecond),
		burst:     burst,
		idle:      3 * time.Minute,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Allow reports whether a request from ip may proceed now.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	c, ok := rl.limiters[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[ip] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// sweep drops clients idle for longer than rl.idle. Callers hold rl.mu.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.idle {
		return
	}
	for ip, c := range rl.limiters {
		if now.Sub(c.lastSeen) > rl.idle {
			delete(rl.limiters, ip)
		}
	}
	rl.lastSweep = now
}

// Clients returns how many clients are being tracked.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// RateLimit answers 429 to clients over their limit.
func RateLimit(limiter *RateLimiter) Middleware {
	return func(next router.Handler) router.Handler {
		return func(w *response.Response, r *request.Request) {
			if !limiter.Allow(r.RemoteAddr) {
				w.SetHeader("Retry-After", "1")
				w.Error(response.StatusTooManyRequests, "Rate limit exceeded")
				return
			}

			next(w, r)
		}
	}
}

// ConnectionID echoes the connection ID in the X-Connection-ID header.
func ConnectionID() Middleware {
	return func(next router.Handler) router.Handler {
		return func(w *response.Response, r *request.Request) {
			if r.ConnectionID != "" {
				w.SetHeader("X-Connection-ID", r.ConnectionID)
			}
			next(w, r)
		}
	}
}
