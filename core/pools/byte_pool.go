// Package pools adapts the teacher's fine-grained pooling layer
// (_examples/searchktools-fast-server/core/pools) to the buffers and
// connections this module actually recycles.
package pools

import "sync"

// BytePool is a multi-tiered []byte pool, sized for HTTP header/body
// scratch buffers, grounded on the teacher's core/pools/byte_pool.go.
type BytePool struct {
	pools []*sync.Pool
	sizes []int
}

var defaultSizes = []int{512, 2048, 8192, 32768}

// NewBytePool creates a pool with the standard size tiers.
func NewBytePool() *BytePool {
	return NewBytePoolWithSizes(defaultSizes)
}

// NewBytePoolWithSizes creates a pool with custom size tiers.
func NewBytePoolWithSizes(sizes []int) *BytePool {
	bp := &BytePool{
		pools: make([]*sync.Pool, len(sizes)),
		sizes: sizes,
	}
	for i, size := range sizes {
		sz := size
		bp.pools[i] = &sync.Pool{
			New: func() any {
				buf := make([]byte, sz)
				return &buf
			},
		}
	}
	return bp
}

// Get returns a slice of at least size bytes, with len == size.
func (bp *BytePool) Get(size int) []byte {
	for i, poolSize := range bp.sizes {
		if size <= poolSize {
			bufPtr := bp.pools[i].Get().(*[]byte)
			buf := *bufPtr
			if cap(buf) < size {
				buf = make([]byte, poolSize)
			}
			return buf[:size]
		}
	}
	return make([]byte, size)
}

// Put returns buf to the appropriately sized tier, if it fits one.
func (bp *BytePool) Put(buf []byte) {
	c := cap(buf)
	for i, poolSize := range bp.sizes {
		if c == poolSize {
			b := buf[:poolSize]
			bp.pools[i].Put(&b)
			return
		}
	}
	// Oversized buffer: let the GC reclaim it.
}
