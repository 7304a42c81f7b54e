package http

import "net/url"

// ClientTrace is a set of observer callbacks invoked at defined points
// of the request lifecycle. Hooks are instrumentation only and never
// affect control flow; nil members are skipped.
type ClientTrace struct {
	// RequestHeadersSent runs after the status line and header block
	// have been written to the connection.
	RequestHeadersSent func(method string, url *url.URL, headers Header)

	// RequestChunkSent runs after each request body chunk is written.
	RequestChunkSent func(method string, url *url.URL, chunk []byte)

	// ResponseChunkReceived runs after response body bytes have been
	// read into the body cache.
	ResponseChunkReceived func(method string, url *url.URL, chunk []byte)
}
