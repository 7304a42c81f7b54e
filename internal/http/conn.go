package http

import (
	"net"

	"github.com/frankli0324/go-httpcore/internal/transport"
)

// Connection is an established, pooled connection reservation. Exactly
// one request/response pair owns a reservation at a time; nothing else
// mutates it.
type Connection interface {
	// Protocol returns the parser bound to this connection. The same
	// instance persists across kept-alive requests.
	Protocol() transport.Protocol

	// NetConn exposes the raw connection for TLS state and peer
	// address inspection.
	NetConn() net.Conn

	// Release returns the connection to the pool alive, eligible for
	// reuse.
	Release()

	// Close terminates the connection; it will not be reused.
	Close()
}
