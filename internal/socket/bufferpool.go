package socket

import "sync"

const (
	smallBufferSize = 4096
	largeBufferSize = 32768
)

// bufferPool manages reusable byte buffers for line peeks and block copies.
type bufferPool struct {
	small sync.Pool // 4KB, one line
	large sync.Pool // 32KB, body and file blocks
}

var globalBufferPool = &bufferPool{
	small: sync.Pool{
		New: func() interface{} {
			buf := make([]byte, smallBufferSize)
			return &buf
		},
	},
	large: sync.Pool{
		New: func() interface{} {
			buf := make([]byte, largeBufferSize)
			return &buf
		},
	},
}

// GetBuffer returns a buffer of exactly size bytes, pooled when size fits a pool tier.
func GetBuffer(size int) []byte {
	switch {
	case size <= smallBufferSize:
		buf := globalBufferPool.small.Get().(*[]byte)
		return (*buf)[:size]
	case size <= largeBufferSize:
		buf := globalBufferPool.large.Get().(*[]byte)
		return (*buf)[:size]
	default:
		return make([]byte, size)
	}
}

// PutBuffer returns a buffer obtained from GetBuffer to its pool.
func PutBuffer(buf []byte) {
	switch cap(buf) {
	case smallBufferSize:
		full := buf[:smallBufferSize]
		globalBufferPool.small.Put(&full)
	case largeBufferSize:
		full := buf[:largeBufferSize]
		globalBufferPool.large.Put(&full)
	}
	// Anything else was allocated outside the pool; let GC handle it
}
