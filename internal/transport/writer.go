package transport

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/frankli0324/go-httpcore/internal/header"
	"github.com/frankli0324/go-httpcore/internal/transport/chunked"
)

// StreamWriter serializes one request onto a connection: the status
// line and headers synchronously, then body chunks through the
// optional compression and chunked coding layers. It is not safe for
// concurrent use; the body-writer task is its only writer once headers
// are out.
type StreamWriter struct {
	out io.Writer

	chunking   bool
	compress   string
	body       io.Writer // assembled on first body write
	compressor io.WriteCloser
	chunker    *chunked.Writer
	eofSent    bool

	// instrumentation hooks, never affect control flow
	OnHeadersSent func()
	OnChunkSent   func(chunk []byte)
}

func NewStreamWriter(out io.Writer) *StreamWriter {
	return &StreamWriter{out: out}
}

func (w *StreamWriter) EnableChunking() { w.chunking = true }

// EnableCompression arms a request-body content coding. Supported
// algorithms are "gzip" and "deflate".
func (w *StreamWriter) EnableCompression(alg string) error {
	switch alg {
	case "gzip", "deflate":
		w.compress = alg
		return nil
	default:
		return fmt.Errorf("httpcore: unsupported content coding %q", alg)
	}
}

// WriteHeaders writes the status line and header block, e.g.:
//
//	GET / HTTP/1.1\r\n
//	Host: www.google.com\r\n
//	X-Xx-Yy: cccccc\r\n
//	\r\n
func (w *StreamWriter) WriteHeaders(statusLine string, h *header.Header) error {
	buf := bufio.NewWriter(w.out) // default bufsize is 4096
	buf.WriteString(statusLine)
	buf.WriteString("\r\n")
	if _, err := h.WriteTo(buf); err != nil {
		return err
	}
	if _, err := buf.WriteString("\r\n"); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if w.OnHeadersSent != nil {
		w.OnHeadersSent()
	}
	return nil
}

func (w *StreamWriter) ensureBody() error {
	if w.body != nil {
		return nil
	}
	var out io.Writer = w.out
	if w.chunking {
		w.chunker = chunked.NewWriter(out)
		out = w.chunker
	}
	switch w.compress {
	case "gzip":
		w.compressor = gzip.NewWriter(out)
		out = w.compressor
	case "deflate":
		fw, err := flate.NewWriter(out, flate.DefaultCompression)
		if err != nil {
			return err
		}
		w.compressor = fw
		out = fw
	}
	w.body = out
	return nil
}

// Write sends one body chunk.
func (w *StreamWriter) Write(p []byte) (int, error) {
	if err := w.ensureBody(); err != nil {
		return 0, err
	}
	n, err := w.body.Write(p)
	if err == nil && w.OnChunkSent != nil {
		w.OnChunkSent(p)
	}
	return n, err
}

// WriteEOF finishes the body: it flushes the compressor and writes the
// zero chunk when chunking. Safe to call more than once.
func (w *StreamWriter) WriteEOF() error {
	if w.eofSent {
		return nil
	}
	w.eofSent = true
	if err := w.ensureBody(); err != nil {
		return err
	}
	if w.compressor != nil {
		if err := w.compressor.Close(); err != nil {
			return err
		}
	}
	if w.chunker != nil {
		return w.chunker.Close()
	}
	return nil
}
