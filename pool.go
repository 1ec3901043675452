package pointrend

import (
	"fmt"
	"sync"

	"github.com/swdee/go-pointrend/predictor"
)

// Pool is a simple pool of PointRend models sharing one backbone and point
// predictor.  Each model owns its own training sampler random source, so
// concurrent callers take a model from the pool for the duration of a
// forward pass
type Pool struct {
	// pool of models
	models chan *PointRend
	// size of pool
	size   int
	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new model pool.  The training sampler of model i is
// seeded with p.Seed+i so the pooled models draw different points
func NewPool(size int, backbone Backbone, pred predictor.Predictor, p Params) (*Pool, error) {

	if size <= 0 {
		return nil, fmt.Errorf("%w: pool size must be greater than 0, got %d",
			ErrInvalidConfig, size)
	}

	pl := &Pool{
		models: make(chan *PointRend, size),
		size:   size,
	}

	for i := 0; i < size; i++ {
		mp := p
		mp.Seed = p.Seed + int64(i)

		m, err := New(backbone, pred, mp)

		if err != nil {
			pl.Close()
			return nil, err
		}

		// attach to pool
		pl.Return(m)
	}

	return pl, nil
}

// Get a model from the pool, blocking until one is available.  Returns nil
// once the pool is closed and drained
func (p *Pool) Get() *PointRend {
	return <-p.models
}

// Return a model to the pool
func (p *Pool) Return(m *PointRend) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return
	}

	select {
	case p.models <- m:
	default:
		// pool is full or closed
	}
}

// Size returns the number of models the pool was created with
func (p *Pool) Size() int {
	return p.size
}

// Close the pool, models still checked out are dropped when returned
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.closed = true
	close(p.models)

	// drain remaining models
	for range p.models {
	}
}
