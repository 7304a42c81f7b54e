package http

import (
	"crypto/tls"
	"hash/fnv"

	"github.com/frankli0324/go-httpcore/internal/header"
)

// ConnectionKey buckets pooled connections. Two requests that would
// negotiate incompatible TLS or proxy configurations must never
// produce equal keys; the key is the only thing standing between a
// pooled connection and reuse under the wrong security context.
type ConnectionKey struct {
	Host  string
	Port  int
	IsSSL bool

	// TLS policy compares by pointer identity: distinct configs are
	// distinct security contexts even when their contents match.
	TLS         *tls.Config
	Fingerprint *Fingerprint

	Proxy            string
	ProxyAuth        BasicAuth
	ProxyHeadersHash uint64
}

// ConnectionKey derives the pool bucket for this request. Pure
// function of request state, no I/O.
func (r *PreparedRequest) ConnectionKey() ConnectionKey {
	key := ConnectionKey{
		Host:        r.URL.Hostname(),
		Port:        r.port(),
		IsSSL:       r.IsSSL(),
		TLS:         r.TLSConfig,
		Fingerprint: r.Fingerprint,
	}
	if r.proxyURL != nil {
		key.Proxy = r.proxyURL.String()
		if r.ProxyAuth != nil {
			key.ProxyAuth = *r.ProxyAuth
		}
		key.ProxyHeadersHash = hashHeaders(&r.ProxyHeaders)
	}
	return key
}

func hashHeaders(h *header.Header) uint64 {
	if h.Len() == 0 {
		return 0
	}
	d := fnv.New64a()
	for _, f := range h.Fields() {
		d.Write([]byte(f.Name))
		d.Write([]byte{0})
		d.Write([]byte(f.Value))
		d.Write([]byte{'\n'})
	}
	return d.Sum64()
}
