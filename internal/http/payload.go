package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/frankli0324/go-httpcore/internal/header"
)

// Payload is an abstract request body: an optional known byte length,
// headers it contributes to the request, and a chunked write operation
// that observes ctx between chunks so a large body can be cancelled
// cooperatively.
type Payload interface {
	// Size returns the body length in bytes, or -1 when unknown.
	Size() int64

	// Headers returns fields the body contributes (e.g. Content-Type).
	// They are merged last and never overwrite caller-set headers.
	Headers() header.Header

	// WriteTo streams the body onto w chunk by chunk.
	WriteTo(ctx context.Context, w io.Writer) error
}

// resolvePayload maps the dynamic Body field to a concrete Payload
// exactly once, at prepare time.
func resolvePayload(body interface{}) (Payload, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case Payload:
		return b, nil
	case []byte:
		return BytesPayload(b), nil
	case string:
		return BytesPayload(b), nil
	case *bytes.Buffer:
		return BytesPayload(b.Bytes()), nil
	case [][]byte:
		return ChunksPayload(b), nil
	case *bytes.Reader:
		return &ReaderPayload{r: b, size: int64(b.Len())}, nil
	case *strings.Reader:
		return &ReaderPayload{r: b, size: int64(b.Len())}, nil
	case io.Reader:
		p := &ReaderPayload{r: b, size: -1}
		if sizer, ok := b.(interface{ Size() int64 }); ok {
			p.size = sizer.Size()
		}
		return p, nil
	default:
		return nil, fmt.Errorf("httpcore: unsupported body type: %T", body)
	}
}

// BytesPayload is a fully-buffered body with a known size.
type BytesPayload []byte

func (p BytesPayload) Size() int64            { return int64(len(p)) }
func (p BytesPayload) Headers() header.Header { return header.Header{} }

func (p BytesPayload) WriteTo(ctx context.Context, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := w.Write(p)
	return err
}

// ChunksPayload writes a fixed sequence of chunks, one Write per
// chunk, checking for cancellation in between.
type ChunksPayload [][]byte

func (p ChunksPayload) Size() int64 {
	var n int64
	for _, c := range p {
		n += int64(len(c))
	}
	return n
}

func (p ChunksPayload) Headers() header.Header { return header.Header{} }

func (p ChunksPayload) WriteTo(ctx context.Context, w io.Writer) error {
	for _, chunk := range p {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := w.Write(chunk); err != nil {
			return err
		}
	}
	return nil
}

// ReaderPayload streams an io.Reader in fixed-size chunks. Size is -1
// unless the reader advertised one, in which case the negotiator can
// still emit a Content-Length.
type ReaderPayload struct {
	r    io.Reader
	size int64
}

func NewReaderPayload(r io.Reader, size int64) *ReaderPayload {
	return &ReaderPayload{r: r, size: size}
}

func (p *ReaderPayload) Size() int64            { return p.size }
func (p *ReaderPayload) Headers() header.Header { return header.Header{} }

func (p *ReaderPayload) WriteTo(ctx context.Context, w io.Writer) error {
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := p.r.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
