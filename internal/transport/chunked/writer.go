package chunked

import (
	"fmt"
	"io"
)

// NewWriter wraps w so that each Write is emitted as a single
// length-prefixed chunk. Close writes the terminating zero chunk.
func NewWriter(w io.Writer) *Writer {
	return &Writer{wire: w}
}

type Writer struct {
	wire io.Writer
}

func (cw *Writer) Write(data []byte) (n int, err error) {
	// Don't send 0-length data. It looks like EOF for chunked encoding.
	if len(data) == 0 {
		return 0, nil
	}

	if _, err = fmt.Fprintf(cw.wire, "%x\r\n", len(data)); err != nil {
		return 0, err
	}
	if n, err = cw.wire.Write(data); err != nil {
		return
	}
	if n != len(data) {
		err = io.ErrShortWrite
		return
	}
	if _, err = io.WriteString(cw.wire, "\r\n"); err != nil {
		return
	}
	if f, ok := cw.wire.(interface{ Flush() error }); ok {
		err = f.Flush()
	}
	return
}

func (cw *Writer) Close() error {
	n, err := io.WriteString(cw.wire, "0\r\n\r\n")
	if err == nil && n != 5 {
		return io.ErrShortWrite
	}
	return err
}
