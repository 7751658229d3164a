package nenet

import "github.com/oxtoacart/bpool"

// bufferPool hands out fixed-width buffers for received frame payloads.
// Frames are capped at MaxMessageSize, so one width fits every payload.
type bufferPool struct {
	pool *bpool.BytePool
}

func newBufferPool(count int) *bufferPool {
	return &bufferPool{pool: bpool.NewBytePool(count, MaxMessageSize)}
}

// get returns a buffer truncated to n bytes, n <= MaxMessageSize.
func (p *bufferPool) get(n int) []byte {
	return p.pool.Get()[:n]
}

// put returns a buffer obtained from get. The buffer must not be used
// after it is returned.
func (p *bufferPool) put(b []byte) {
	if cap(b) < MaxMessageSize {
		return
	}
	p.pool.Put(b[:cap(b)])
}
