// Package pool implements the per-layout buffer free list described in
// spec §4.10: containers return their backing buffer here on dispose, and
// future allocations for the same layout pop a reused buffer instead of
// allocating fresh, the way internal/fuse reuses io.SectionReader slots
// via its inodeCnt/inodes bookkeeping rather than reallocating per call.
package pool

import (
	"log"
	"sync"
)

// Verbose gates pool churn logging (buffers allocated fresh vs. reused),
// off by default. Mirrors distri's own atexit.go use of bare log.Printf
// for diagnostics rather than a structured logger.
var Verbose bool

// Pool is a bounded free list of buffers, all sized to the same length.
// It is safe for concurrent use, guarded by a single mutex, matching the
// coarse-grained locking the registry is allowed (but not required) to
// use per spec §5.
type Pool struct {
	size int

	mu       sync.Mutex
	free     [][]byte
	retained int
	limit    int // 0 means unbounded
}

// New returns a pool for buffers of the given size. limit bounds how many
// buffers are retained on Put; 0 means unbounded.
func New(size, limit int) *Pool {
	return &Pool{size: size, limit: limit}
}

// Size returns the fixed buffer length this pool manages.
func (p *Pool) Size() int { return p.size }

// Get returns a zeroed buffer of Size() bytes, reusing one from the free
// list when available.
func (p *Pool) Get() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.free); n > 0 {
		buf := p.free[n-1]
		p.free = p.free[:n-1]
		p.retained--
		for i := range buf {
			buf[i] = 0
		}
		if Verbose {
			log.Printf("pool: reused buffer of size %d, %d retained", p.size, p.retained)
		}
		return buf
	}
	if Verbose {
		log.Printf("pool: allocating fresh buffer of size %d", p.size)
	}
	return make([]byte, p.size)
}

// Put returns buf to the free list for reuse, clearing it first. Buffers
// of the wrong size are dropped rather than retained.
func (p *Pool) Put(buf []byte) {
	if len(buf) != p.size {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.limit > 0 && p.retained >= p.limit {
		if Verbose {
			log.Printf("pool: dropping buffer of size %d, at limit %d", p.size, p.limit)
		}
		return
	}
	for i := range buf {
		buf[i] = 0
	}
	p.free = append(p.free, buf)
	p.retained++
	if Verbose {
		log.Printf("pool: retained buffer of size %d, %d now retained", p.size, p.retained)
	}
}

// RetainedCount reports how many buffers the free list currently holds,
// observable for testing per spec §4.10.
func (p *Pool) RetainedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.retained
}
