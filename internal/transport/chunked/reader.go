package chunked

import (
	"bufio"
	"errors"
	"io"
)

// NewReader decodes a chunked transfer coding. The trailer section
// after the zero-length chunk is consumed (and discarded) so that a
// kept-alive connection is left positioned at the next response.
// The returned reader deliberately exposes only Read: byte-oriented
// reads must go through the dechunking layer, never around it.
func NewReader(r io.Reader) io.Reader {
	var br *bufio.Reader
	if v, ok := r.(*bufio.Reader); ok {
		br = v
	} else {
		br = bufio.NewReader(r)
	}
	return &chunkedReader{br: br}
}

type chunkedReader struct {
	br                             *bufio.Reader
	currentChunk                   io.Reader
	currentCount, currentChunkSize int64
	done                           bool
}

func (c *chunkedReader) readChunkHeader() (size uint64, err error) {
	cnt := 0
	isPref := true
	ext := false
	for isPref {
		var line []byte
		line, isPref, err = c.br.ReadLine()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}
		for _, b := range line {
			if ext {
				// chunk extension, discarded to end of line
				break
			}
			switch {
			case '0' <= b && b <= '9':
				b = b - '0'
			case 'a' <= b && b <= 'f':
				b = b - 'a' + 10
			case 'A' <= b && b <= 'F':
				b = b - 'A' + 10
			case b == ';':
				ext = true
				continue
			default:
				return 0, errors.New("invalid byte in chunk length")
			}
			cnt++
			if cnt >= 16 {
				return 0, errors.New("http chunk length too large")
			}
			size <<= 4
			size |= uint64(b)
		}
	}
	return
}

// discardTrailer eats trailer lines up to and including the blank line
// terminating the chunked body.
func (c *chunkedReader) discardTrailer() error {
	for {
		line, isPref, err := c.br.ReadLine()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return err
		}
		if isPref {
			continue
		}
		if len(line) == 0 {
			return nil
		}
	}
}

func (c *chunkedReader) Read(p []byte) (n int, err error) {
	if c.done {
		return 0, io.EOF
	}
	if c.currentChunk == nil {
		l, err := c.readChunkHeader()
		if err != nil {
			return n, err
		}
		if l == 0 {
			if err := c.discardTrailer(); err != nil {
				return 0, err
			}
			c.done = true
			return 0, io.EOF
		}
		c.currentChunk = io.LimitReader(c.br, int64(l))
		c.currentChunkSize = int64(l)
	}
	n, err = c.currentChunk.Read(p)
	c.currentCount += int64(n)
	if err == io.EOF {
		if c.currentCount != c.currentChunkSize {
			return n, io.ErrUnexpectedEOF
		}
		err = nil
		dr, _ := c.br.ReadByte()
		dn, err := c.br.ReadByte()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return n, err
		}
		if dr != '\r' || dn != '\n' {
			return n, errors.New("malformed chunked encoding")
		}
		c.currentChunk = nil
		c.currentCount = 0
	}
	return
}
