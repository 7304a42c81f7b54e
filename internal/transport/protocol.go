package transport

import (
	"context"
	"fmt"

	"github.com/frankli0324/go-httpcore/internal/header"
)

type Version struct {
	Major, Minor int
}

var (
	Version10 = Version{1, 0}
	Version11 = Version{1, 1}
)

func (v Version) String() string {
	return fmt.Sprintf("HTTP/%d.%d", v.Major, v.Minor)
}

func (v Version) Less(o Version) bool {
	return v.Major < o.Major || (v.Major == o.Major && v.Minor < o.Minor)
}

// ResponseHead is a parsed status line plus header block. RawHeaders
// keeps the unmodified name/value byte pairs in wire order.
type ResponseHead struct {
	Version    Version
	Code       int
	Reason     string
	Headers    header.Header
	RawHeaders [][2][]byte
}

// Protocol is the parser side of an established connection. It splits
// the inbound byte stream into response heads and payload streams and
// carries the deferred-exception slot shared between the body-writer
// task and the reader.
type Protocol interface {
	// Write sends raw bytes to the peer.
	Write(p []byte) (int, error)

	// ReadHead reads the next response head off the connection and
	// returns it together with the stream for its payload. The payload
	// must be consumed before ReadHead is called again.
	ReadHead(ctx context.Context) (*ResponseHead, *BodyStream, error)

	// StartTimeout arms the read timeout once the request has been
	// fully written.
	StartTimeout()

	// Upgraded reports whether the connection switched protocols
	// (101). An upgraded connection must not be pooled or closed
	// implicitly.
	Upgraded() bool

	// SetException fails the current payload stream. Write errors from
	// the background body writer land here instead of being raised at
	// the writer, so the reader observes them on its next read.
	SetException(err error)
	Exception() error
}

// ProcessingError is returned by ReadHead when the peer's head is
// unparseable.
type ProcessingError struct {
	Message string
	Err     error
}

func (e *ProcessingError) Error() string {
	return "httpcore: malformed response: " + e.Message
}

func (e *ProcessingError) Unwrap() error { return e.Err }
