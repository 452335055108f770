package store

import (
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/xerrors"

	"github.com/binobj/store/internal/layout"
	"github.com/binobj/store/internal/pool"
)

// EmptyID is the reserved id meaning "no reference". It is never handed out
// by Register.
const EmptyID uint64 = 0

// wildReserved is skipped too, kept free for callers that want to reserve a
// sentinel "wild" marker distinct from 0 without colliding with a real id.
const wildReserved uint64 = 1

// Registry owns the 64-bit id space for a family of containers and the
// per-layout buffer pools they are allocated from.
type Registry struct {
	mu    sync.Mutex
	byID  map[uint64]*Container
	next  uint64
	pools map[*layout.Layout]*pool.Pool
}

// NewRegistry returns an empty registry. The first id it hands out is 2;
// 0 and 1 are reserved.
func NewRegistry() *Registry {
	return &Registry{
		byID:  make(map[uint64]*Container),
		next:  2,
		pools: make(map[*layout.Layout]*pool.Pool),
	}
}

func (r *Registry) poolFor(l *layout.Layout) *pool.Pool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pools[l]
	if !ok {
		p = pool.New(int(l.Header.TotalLength), 0)
		r.pools[l] = p
	}
	return p
}

// CreateWild allocates and realizes a container for l, reusing a pooled
// buffer when one of the right size is free, without registering it.
func (r *Registry) CreateWild(l *layout.Layout) (*Container, error) {
	p := r.poolFor(l)
	return FromLayout(l, p)
}

// Register assigns c the next free id and makes it reachable by
// GetContainer. c must not already be registered.
func (r *Registry) Register(c *Container) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID() != EmptyID {
		return 0, xerrors.Errorf("registry: container already registered with id %d: %w", c.ID(), ErrArgumentError)
	}
	id := r.next
	for id == EmptyID || id == wildReserved {
		id++
	}
	r.next = id + 1
	r.byID[id] = c
	c.setID(id)
	c.reg = r
	return id, nil
}

// CreateAt allocates a container for l, registers it, and (if writeID is
// non-nil) passes the new id to writeID so the caller can store it into a
// parent's Ref field.
func (r *Registry) CreateAt(l *layout.Layout, writeID func(id uint64)) (*Container, error) {
	c, err := r.CreateWild(l)
	if err != nil {
		return nil, err
	}
	id, err := r.Register(c)
	if err != nil {
		return nil, err
	}
	if writeID != nil {
		writeID(id)
	}
	return c, nil
}

// GetContainer looks up a registered container by id.
func (r *Registry) GetContainer(id uint64) (*Container, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	return c, ok
}

// Len reports how many containers are currently registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// Ids returns every currently registered id, in no particular order.
func (r *Registry) Ids() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Keys(r.byID)
}

// Unregister removes c, and everything reachable from it through Ref and
// Ref[] fields, from the registry, disposing each one's buffer. It is
// cycle-safe: a container already visited in this call is never disposed
// twice. Unregistering a container already removed (or a wild one not in
// the registry at all) is a no-op beyond disposing its own buffer.
func (r *Registry) Unregister(c *Container) error {
	return r.unregister(c, make(map[uint64]bool))
}

func (r *Registry) unregister(c *Container, visited map[uint64]bool) error {
	id := c.ID()
	if id == EmptyID {
		return c.Dispose()
	}
	r.mu.Lock()
	if visited[id] {
		r.mu.Unlock()
		return nil
	}
	visited[id] = true
	if _, ok := r.byID[id]; !ok {
		r.mu.Unlock()
		return nil
	}
	delete(r.byID, id)
	r.mu.Unlock()

	for _, childID := range c.outgoingRefs() {
		child, ok := r.GetContainer(childID)
		if !ok {
			continue
		}
		if err := r.unregister(child, visited); err != nil {
			return err
		}
	}
	return c.Dispose()
}
