package dialer

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/frankli0324/go-httpcore/internal/http"
	"github.com/frankli0324/go-httpcore/utils/netpool"
)

// Dialers handle pretty much everything related to the actual
// connection: resolving, proxying, TLS, and checking out pooled
// connections bucketed by the request's ConnectionKey.
type Dialer interface {
	// Dial returns an established connection reservation the request
	// and response engines bind to.
	Dial(ctx context.Context, r *http.PreparedRequest) (http.Connection, error)
	Unwrap() Dialer
}

type CoreDialer struct {
	ResolveConfig *ResolveConfig

	TLSConfig *tls.Config // the config to use when the request has none

	ConnPool    *netpool.PoolGroup
	ProxyConfig *ProxyConfig

	// ResponseTimeout arms the protocol read timeout once a request
	// has been fully written.
	ResponseTimeout time.Duration
}

func (d *CoreDialer) Clone() *CoreDialer {
	return &CoreDialer{
		ResolveConfig:   d.ResolveConfig.Clone(),
		TLSConfig:       d.TLSConfig.Clone(),
		ConnPool:        d.ConnPool.NewEmpty(),
		ProxyConfig:     d.ProxyConfig.Clone(),
		ResponseTimeout: d.ResponseTimeout,
	}
}

func (d *CoreDialer) Unwrap() Dialer {
	return nil
}

type ResolveConfig struct {
	CustomDNSServer string
	Network         string            // one of "ip4", "ip6", default is "ip"
	StaticHosts     map[string]string // resembles /etc/hosts
}

func (c *ResolveConfig) Clone() *ResolveConfig {
	if c == nil {
		return nil
	}
	return &ResolveConfig{
		CustomDNSServer: c.CustomDNSServer,
		Network:         c.Network,
		StaticHosts:     c.StaticHosts,
	}
}

type ProxyConfig struct {
	// TLSConfig is used when the proxy itself speaks TLS; nil falls
	// back to *[CoreDialer.TLSConfig]
	TLSConfig      *tls.Config
	ResolveLocally bool
	ResolveConfig  *ResolveConfig // overrides the dialer resolver for proxied hosts
}

func (c *ProxyConfig) Clone() *ProxyConfig {
	if c == nil {
		return nil
	}
	return &ProxyConfig{
		TLSConfig:      c.TLSConfig.Clone(),
		ResolveLocally: c.ResolveLocally,
		ResolveConfig:  c.ResolveConfig.Clone(),
	}
}
