package server

import (
	"sync/atomic"
	"time"

	"github.com/Brownie44l1/webby/internal/response"
)

// Metrics holds server runtime metrics
type Metrics struct {
	ConnectionsAccepted atomic.Int64
	ActiveConnections   atomic.Int64
	DecodeErrors        atomic.Int64

	RequestsTotal atomic.Int64
	Errors4xx     atomic.Int64
	Errors5xx     atomic.Int64
	BytesWritten  atomic.Int64

	// Latency tracking (simplified - use histogram in production)
	TotalLatencyNs atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) connectionOpened() {
	m.ConnectionsAccepted.Add(1)
	m.ActiveConnections.Add(1)
}

func (m *Metrics) connectionClosed() {
	m.ActiveConnections.Add(-1)
}

// RecordRequest records a completed request
func (m *Metrics) RecordRequest(status response.StatusCode, written int64, duration time.Duration) {
	m.RequestsTotal.Add(1)
	m.BytesWritten.Add(written)
	m.TotalLatencyNs.Add(duration.Nanoseconds())

	switch {
	case status.IsClientError():
		m.Errors4xx.Add(1)
	case status.IsServerError():
		m.Errors5xx.Add(1)
	}
}

// AverageLatency returns average request latency
func (m *Metrics) AverageLatency() time.Duration {
	total := m.RequestsTotal.Load()
	if total == 0 {
		return 0
	}
	return time.Duration(m.TotalLatencyNs.Load() / total)
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	ConnectionsAccepted int64
	ActiveConnections   int64
	DecodeErrors        int64
	RequestsTotal       int64
	Errors4xx           int64
	Errors5xx           int64
	BytesWritten        int64
	AverageLatency      time.Duration
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		ConnectionsAccepted: m.ConnectionsAccepted.Load(),
		ActiveConnections:   m.ActiveConnections.Load(),
		DecodeErrors:        m.DecodeErrors.Load(),
		RequestsTotal:       m.RequestsTotal.Load(),
		Errors4xx:           m.Errors4xx.Load(),
		Errors5xx:           m.Errors5xx.Load(),
		BytesWritten:        m.BytesWritten.Load(),
		AverageLatency:      m.AverageLatency(),
	}
}
