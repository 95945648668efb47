package server

import (
	"bytes"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"

	"github.com/Brownie44l1/webby/internal/headers"
	"github.com/Brownie44l1/webby/internal/request"
	"github.com/Brownie44l1/webby/internal/response"
	"github.com/Brownie44l1/webby/internal/router"
)

type bufConn struct {
	bytes.Buffer
}

func (c *bufConn) Close() error { return nil }

func testRequest(path string) *request.Request {
	return &request.Request{
		Method:       request.MethodGet,
		MethodToken:  "GET",
		Path:         path,
		Headers:      headers.NewHeaders(),
		RemoteAddr:   "10.0.0.1",
		ConnectionID: "conn-1",
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next router.Handler) router.Handler {
			return func(w *response.Response, r *request.Request) {
				order = append(order, name+" in")
				next(w, r)
				order = append(order, name+" out")
			}
		}
	}

	h := Chain(func(w *response.Response, r *request.Request) {
		order = append(order, "handler")
	}, mark("a"), mark("b"))
	h(response.New(&bufConn{}), testRequest("/"))

	assert.Equal(t, []string{"a in", "b in", "handler", "b out", "a out"}, order)
}

func TestRecoveryAfterHeadersSent(t *testing.T) {
	conn := &bufConn{}
	w := response.New(conn)
	h := Recovery(logr.Discard())(func(w *response.Response, r *request.Request) {
		w.SetHeader("Content-Length", "10")
		w.WriteBlock([]byte("part"))
		panic("late")
	})

	assert.NotPanics(t, func() { h(w, testRequest("/")) })
	assert.Contains(t, conn.String(), "HTTP/1.1 200 OK\r\n")
	assert.NotContains(t, conn.String(), "Internal Server Error")
}

func TestRecordMetrics(t *testing.T) {
	m := NewMetrics()
	h := RecordMetrics(m)(func(w *response.Response, r *request.Request) {
		w.Error(response.StatusNotFound, "")
	})
	h(response.New(&bufConn{}), testRequest("/"))
	h(response.New(&bufConn{}), testRequest("/"))

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.RequestsTotal)
	assert.Equal(t, int64(2), snap.Errors4xx)
	assert.Equal(t, int64(0), snap.Errors5xx)
	assert.Greater(t, snap.BytesWritten, int64(0))
}

func TestConnectionIDHeader(t *testing.T) {
	conn := &bufConn{}
	w := response.New(conn)
	ConnectionID()(func(w *response.Response, r *request.Request) {})(w, testRequest("/"))
	w.Finish()
	assert.Contains(t, conn.String(), "X-Connection-ID: conn-1\r\n")
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 2)
	rl.now = func() time.Time { return now }
	rl.lastSweep = now

	// Test: burst then refusal
	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))

	// Test: clients are independent
	assert.True(t, rl.Allow("b"))

	// Test: tokens refill over time
	now = now.Add(time.Second)
	assert.True(t, rl.Allow("a"))
	assert.Equal(t, 2, rl.Clients())

	// Test: idle clients are swept
	now = now.Add(10 * time.Minute)
	assert.True(t, rl.Allow("c"))
	assert.Equal(t, 1, rl.Clients())
}
