package dialer

import (
	"context"
	"net"
)

// this type should not be used outside this package. prevents
// non-custom DNS server contexts from iterating through all keys
type dnsServerCtx struct {
	context.Context
	server string
}

var dnsServerCtxKey = &dnsServerCtx{nil, "dns-server"} // non-nil pointer, definitely unique

func (c dnsServerCtx) Value(key interface{}) interface{} {
	if key == dnsServerCtxKey {
		return c.server
	}
	return c.Context.Value(key)
}

var customServerResolver = net.Resolver{
	PreferGo: true,
	Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
		if v, ok := ctx.Value(dnsServerCtxKey).(string); ok && v != "" {
			return zeroDialer.DialContext(ctx, network, v)
		}
		return zeroDialer.DialContext(ctx, network, address)
	},
}

var customDNSDialer = net.Dialer{
	Resolver: &customServerResolver,
}

func (d *CoreDialer) lookup(ctx context.Context, cfg *ResolveConfig, host string) ([]net.IP, error) {
	network, dns := "ip", ""
	if cfg != nil {
		if cfg.Network != "" {
			network = cfg.Network
		}
		dns = cfg.CustomDNSServer
	}
	return customServerResolver.LookupIP(dnsServerCtx{ctx, dns}, network, host)
}
