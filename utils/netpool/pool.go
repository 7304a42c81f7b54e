package netpool

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/frankli0324/go-httpcore/utils/nettools"
)

// Conn is a leased connection. Exactly one of Release or Close ends
// the lease: Release hands the connection back for reuse, Close
// terminates it. Either way the pool slot is freed.
type Conn interface {
	io.ReadWriteCloser
	Release()
	Raw() net.Conn

	// Session and SetSession pin arbitrary state (a protocol parser)
	// to the underlying connection across pool round-trips.
	Session() any
	SetSession(any)
}

type Pool struct {
	connTicket      chan struct{}
	idleTicket      chan struct{}
	maxIdleDuration time.Duration

	mu   sync.Mutex
	idle []*conn
}

func NewPool(maxIdle, maxConn uint) *Pool {
	return &Pool{
		connTicket: make(chan struct{}, maxConn),
		idleTicket: make(chan struct{}, maxIdle),
	}
}

// SetMaxIdleDuration discards idle connections older than d on their
// next checkout. Zero keeps them forever.
func (p *Pool) SetMaxIdleDuration(d time.Duration) {
	p.maxIdleDuration = d
}

func (p *Pool) Connect(ctx context.Context, dial func(ctx context.Context) (net.Conn, error)) (Conn, error) {
	select {
	case p.connTicket <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	for {
		select {
		case <-p.idleTicket:
			p.mu.Lock()
			c := p.idle[0]
			p.idle = p.idle[1:]
			p.mu.Unlock()
			if p.maxIdleDuration != 0 && time.Since(c.lastIdle) > p.maxIdleDuration {
				c.Close()
			} else if c.Available() && nettools.Alive(c.conn) {
				return &lease{p: p, conn: c}, nil
			} else {
				c.Close()
			}
		default:
			nc, err := dial(ctx)
			if err != nil {
				<-p.connTicket
				return nil, err
			}
			return &lease{p: p, conn: &conn{conn: nc}}, nil
		}
	}
}

func (p *Pool) endLease(c *conn) {
	<-p.connTicket
	if !c.Available() {
		return
	}
	select {
	case p.idleTicket <- struct{}{}:
		c.lastIdle = time.Now()
		p.mu.Lock()
		p.idle = append(p.idle, c)
		p.mu.Unlock()
	default:
		c.Close()
	}
}

type lease struct {
	p *Pool
	*conn
	ended atomic.Bool
}

func (l *lease) Raw() net.Conn { return l.conn.conn }

func (l *lease) Session() any     { return l.conn.session }
func (l *lease) SetSession(v any) { l.conn.session = v }

func (l *lease) Release() {
	if !l.ended.CompareAndSwap(false, true) {
		return
	}
	l.p.endLease(l.conn)
}

func (l *lease) Close() error {
	if !l.ended.CompareAndSwap(false, true) {
		return nil
	}
	err := l.conn.Close()
	l.p.endLease(l.conn)
	return err
}
