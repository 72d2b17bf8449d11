package pools

import "sync"

// ConnectionPoolable lets a pooled type reset itself between uses, mirroring
// the teacher's core/pools/connection_pool.go ConnectionPoolable interface.
type ConnectionPoolable interface {
	Reset()
}

// ConnectionPool recycles connection-scoped objects (the Connection struct
// itself, in core/connection.go) to avoid an allocation per accepted
// socket under sustained load.
type ConnectionPool struct {
	pool sync.Pool
}

// NewConnectionPool creates a pool whose New function is newFn. capacity is
// accepted for parity with the teacher's constructor signature but Go's
// sync.Pool has no fixed capacity to configure.
func NewConnectionPool(capacity int, newFn func() any) *ConnectionPool {
	return &ConnectionPool{pool: sync.Pool{New: newFn}}
}

// Get returns a pooled object, constructing one if the pool is empty.
func (p *ConnectionPool) Get() any {
	return p.pool.Get()
}

// Put resets obj and returns it to the pool.
func (p *ConnectionPool) Put(obj any) {
	if poolable, ok := obj.(ConnectionPoolable); ok {
		poolable.Reset()
	}
	p.pool.Put(obj)
}
