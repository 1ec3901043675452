package sampling

import (
	"sync"
)

// bufferPool recycles the float32 scratch buffers holding uncertainty maps
// between sampling calls
type bufferPool struct {
	pool sync.Pool
}

// newBufferPool returns an empty bufferPool
func newBufferPool() *bufferPool {
	return &bufferPool{
		pool: sync.Pool{
			New: func() any {
				return new([]float32)
			},
		},
	}
}

// Get returns a zeroed []float32 slice of length 'size'.  A larger buffer is
// allocated when the pooled one is too small
func (b *bufferPool) Get(size int) *[]float32 {

	buf := b.pool.Get().(*[]float32)

	if cap(*buf) < size {
		*buf = make([]float32, size)
		return buf
	}

	// get buffer of required size
	*buf = (*buf)[:size]

	clear(*buf)

	return buf
}

// Put returns a buffer back into the pool.  The caller must not use the
// buffer afterwards
func (b *bufferPool) Put(buf *[]float32) {
	b.pool.Put(buf)
}
