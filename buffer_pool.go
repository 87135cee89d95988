package recorder

import (
	"sync"
	"sync/atomic"
)

// bufferPool recycles the fixed-size read buffers handed to the port. One
// buffer is checked out per ingestion loop, so the pool mostly matters
// across reconnects and for the handshake's throwaway read.
type bufferPool struct {
	pool sync.Pool
	size int

	gets    atomic.Int64
	puts    atomic.Int64
	creates atomic.Int64
}

func newBufferPool(size int) *bufferPool {
	bp := &bufferPool{size: size}
	bp.pool = sync.Pool{
		New: func() interface{} {
			bp.creates.Add(1)
			return make([]byte, size)
		},
	}
	return bp
}

func (bp *bufferPool) Get() []byte {
	bp.gets.Add(1)
	return bp.pool.Get().([]byte)
}

func (bp *bufferPool) Put(buf []byte) {
	if len(buf) != bp.size {
		return // don't pool incorrectly sized buffers
	}
	bp.puts.Add(1)
	bp.pool.Put(buf)
}

// Stats returns pool usage statistics.
func (bp *bufferPool) Stats() PoolStats {
	return PoolStats{
		Size:    bp.size,
		Gets:    bp.gets.Load(),
		Puts:    bp.puts.Load(),
		Creates: bp.creates.Load(),
	}
}

// PoolStats contains read buffer pool usage statistics.
type PoolStats struct {
	Size    int   `json:"size"`
	Gets    int64 `json:"gets"`
	Puts    int64 `json:"puts"`
	Creates int64 `json:"creates"`
}
