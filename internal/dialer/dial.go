package dialer

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"time"

	"github.com/frankli0324/go-httpcore/internal/http"
	"github.com/frankli0324/go-httpcore/internal/transport"
	"github.com/frankli0324/go-httpcore/utils/netpool"
)

var defaultPool = netpool.NewGroup(100, 80)

var zeroDialer net.Dialer

func (d *CoreDialer) pool() *netpool.PoolGroup {
	if d.ConnPool != nil {
		return d.ConnPool
	}
	return defaultPool
}

// Dial checks a connection out of the pool bucket for the request's
// ConnectionKey, dialing a fresh one when no idle connection exists.
func (d *CoreDialer) Dial(ctx context.Context, r *http.PreparedRequest) (http.Connection, error) {
	key := r.ConnectionKey()
	lease, err := d.pool().Connect(ctx, key, func(ctx context.Context) (net.Conn, error) {
		return d.dialNew(ctx, r, key)
	})
	if err != nil {
		return nil, err
	}
	return &pooledConnection{lease: lease, responseTimeout: d.ResponseTimeout}, nil
}

func (d *CoreDialer) dialNew(ctx context.Context, r *http.PreparedRequest, key http.ConnectionKey) (net.Conn, error) {
	var conn net.Conn
	var err error
	if r.ProxyURL() != nil {
		conn, err = d.dialProxy(ctx, r)
	} else {
		conn, err = d.dialDirect(ctx, key.Host, key.Port)
	}
	if err != nil {
		return nil, err
	}

	if r.IsSSL() && r.ProxyURL() == nil {
		conn, err = d.handshake(ctx, conn, r, r.URL.Hostname())
		if err != nil {
			return nil, err
		}
	}
	return conn, nil
}

// handshake upgrades conn to TLS and runs the post-handshake
// fingerprint check when the request pins a certificate.
func (d *CoreDialer) handshake(ctx context.Context, conn net.Conn, r *http.PreparedRequest, serverName string) (net.Conn, error) {
	config := r.TLSConfig
	if config == nil {
		config = d.TLSConfig
	}
	config = config.Clone()
	if config == nil {
		config = &tls.Config{}
	}
	if config.ServerName == "" {
		if r.ServerHostname != "" {
			config.ServerName = r.ServerHostname
		} else {
			config.ServerName = serverName
		}
	}
	if r.Fingerprint != nil {
		// pinning replaces chain validation
		config.InsecureSkipVerify = true
	}
	c := tls.Client(conn, config)
	if err := c.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	if r.Fingerprint != nil {
		if err := r.Fingerprint.Check(c); err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

func (d *CoreDialer) dialDirect(ctx context.Context, host string, port int) (net.Conn, error) {
	network, dialer, dialctx := "tcp", &zeroDialer, ctx
	dst := net.JoinHostPort(host, strconv.Itoa(port))

	if cfg := d.ResolveConfig; cfg != nil {
		if cfg.Network == "ip4" {
			network = "tcp4"
		} else if cfg.Network == "ip6" {
			network = "tcp6"
		}
		if static, ok := cfg.StaticHosts[host]; ok {
			dst = net.JoinHostPort(static, strconv.Itoa(port))
		}
		if dns := cfg.CustomDNSServer; dns != "" {
			dialctx = dnsServerCtx{dialctx, dns}
			dialer = &customDNSDialer
		}
	}
	return dialer.DialContext(dialctx, network, dst)
}

// pooledConnection binds a pool lease to the protocol parser pinned to
// the underlying connection, so buffered bytes survive reuse.
type pooledConnection struct {
	lease           netpool.Conn
	responseTimeout time.Duration
}

func (c *pooledConnection) Protocol() transport.Protocol {
	if p, ok := c.lease.Session().(*transport.HTTP1); ok {
		return p
	}
	p := transport.NewHTTP1(c.lease)
	p.ReadTimeout = c.responseTimeout
	c.lease.SetSession(p)
	return p
}

func (c *pooledConnection) NetConn() net.Conn { return c.lease.Raw() }
func (c *pooledConnection) Release()          { c.lease.Release() }
func (c *pooledConnection) Close()            { c.lease.Close() }
