package netpool

import (
	"context"
	"net"
	"sync"
)

// PoolGroup buckets pools by an opaque comparable key. The contract is
// equality only: callers must derive the key from everything that
// makes two connections interchangeable.
type PoolGroup struct {
	sync.RWMutex
	pools map[any]*Pool

	maxConnsPerHost, maxIdlePerHost uint
}

func NewGroup(maxConnsPerHost, maxIdlePerHost uint) *PoolGroup {
	return &PoolGroup{
		pools:           map[any]*Pool{},
		maxConnsPerHost: maxConnsPerHost, maxIdlePerHost: maxIdlePerHost,
	}
}

// NewEmpty returns a fresh group with the same limits.
func (g *PoolGroup) NewEmpty() *PoolGroup {
	return NewGroup(g.maxConnsPerHost, g.maxIdlePerHost)
}

func (g *PoolGroup) Connect(ctx context.Context, key any, dial func(ctx context.Context) (net.Conn, error)) (Conn, error) {
	g.RLock()
	p, ok := g.pools[key]
	g.RUnlock()
	if ok {
		return p.Connect(ctx, dial)
	}
	g.Lock()
	if p, ok = g.pools[key]; !ok {
		p = NewPool(g.maxIdlePerHost, g.maxConnsPerHost)
		g.pools[key] = p
	}
	g.Unlock()
	return p.Connect(ctx, dial)
}
