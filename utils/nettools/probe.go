// package nettools carries fd-level connection inspection helpers.
package nettools

import (
	"net"
	"syscall"
)

// Alive reports whether an idle connection is still usable. A
// connection with pending readable bytes (or EOF/error pending) while
// no request is outstanding was either closed by the peer or is
// delivering stray bytes; both make it unusable for a new request.
// On platforms without a probe implementation it reports true and the
// first request write discovers the failure instead.
func Alive(c net.Conn) bool {
	return probe(c)
}

func rawConn(raw net.Conn) syscall.RawConn {
	if t, ok := raw.(interface{ NetConn() net.Conn }); ok {
		// *tls.Conn or a polyfilled TLS connection
		raw = t.NetConn()
	}
	if sc, ok := raw.(syscall.Conn); ok {
		if rc, err := sc.SyscallConn(); err == nil {
			return rc
		}
	}
	return nil
}
