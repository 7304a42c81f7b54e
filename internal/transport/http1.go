package transport

import (
	"bufio"
	"context"
	"io"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/frankli0324/go-httpcore/internal/transport/chunked"
)

// HTTP1 implements [Protocol] over a single HTTP/1.x connection. One
// HTTP1 instance lives as long as the underlying connection so that
// buffered bytes survive across kept-alive requests.
type HTTP1 struct {
	rw io.ReadWriter
	br *bufio.Reader

	// ReadTimeout, when non-zero, is armed by StartTimeout once the
	// request has been fully written.
	ReadTimeout time.Duration

	mu       sync.Mutex
	exc      error
	current  *BodyStream
	upgraded bool
	skipBody bool
}

func NewHTTP1(rw io.ReadWriter) *HTTP1 {
	return &HTTP1{rw: rw, br: bufio.NewReader(rw)}
}

func (p *HTTP1) Write(b []byte) (int, error) {
	return p.rw.Write(b)
}

// SkipNextBody marks the next response as bodiless regardless of its
// framing headers (HEAD requests, CONNECT tunnels).
func (p *HTTP1) SkipNextBody() {
	p.mu.Lock()
	p.skipBody = true
	p.mu.Unlock()
}

func (p *HTTP1) Upgraded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.upgraded
}

func (p *HTTP1) SetException(err error) {
	p.mu.Lock()
	if p.exc == nil {
		p.exc = err
	}
	cur := p.current
	p.mu.Unlock()
	if cur != nil {
		cur.SetException(err)
	}
}

func (p *HTTP1) Exception() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exc
}

func (p *HTTP1) StartTimeout() {
	if p.ReadTimeout <= 0 {
		return
	}
	if d, ok := p.rw.(interface{ SetReadDeadline(time.Time) error }); ok {
		d.SetReadDeadline(time.Now().Add(p.ReadTimeout))
	}
}

func (p *HTTP1) ReadHead(ctx context.Context) (*ResponseHead, *BodyStream, error) {
	if err := p.Exception(); err != nil {
		return nil, nil, err
	}
	if d, ok := p.rw.(interface{ SetReadDeadline(time.Time) error }); ok {
		if dl, has := ctx.Deadline(); has {
			d.SetReadDeadline(dl)
			defer d.SetReadDeadline(time.Time{})
		}
	}

	tp := textproto.NewReader(p.br)
	head, err := p.readHead(tp)
	if err != nil {
		if exc := p.Exception(); exc != nil {
			return nil, nil, exc
		}
		return nil, nil, err
	}

	body, err := p.bodyFor(head)
	if err != nil {
		return nil, nil, err
	}
	stream := NewBodyStream(body)
	p.mu.Lock()
	if head.Code == 101 {
		p.upgraded = true
	}
	p.skipBody = false
	p.current = stream
	if p.exc != nil {
		stream.SetException(p.exc)
	}
	p.mu.Unlock()
	return head, stream, nil
}

func (p *HTTP1) readHead(tp *textproto.Reader) (*ResponseHead, error) {
	line, err := tp.ReadLine()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	proto, status, ok := strings.Cut(line, " ")
	if !ok {
		return nil, &ProcessingError{Message: "malformed status line " + strconv.Quote(line)}
	}
	head := &ResponseHead{}
	if head.Version, ok = parseVersion(proto); !ok {
		return nil, &ProcessingError{Message: "malformed HTTP version " + strconv.Quote(proto)}
	}
	status = strings.TrimLeft(status, " ")
	codeStr, reason, _ := strings.Cut(status, " ")
	if len(codeStr) != 3 {
		return nil, &ProcessingError{Message: "malformed HTTP status code " + strconv.Quote(codeStr)}
	}
	head.Code, err = strconv.Atoi(codeStr)
	if err != nil || head.Code < 0 {
		return nil, &ProcessingError{Message: "malformed HTTP status code " + strconv.Quote(codeStr)}
	}
	head.Reason = reason

	// header block, order and casing preserved
	for {
		line, err := tp.ReadLine()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
		if line == "" {
			break
		}
		if line[0] == ' ' || line[0] == '\t' {
			// obs-fold continuation of the previous field
			n := len(head.RawHeaders)
			if n == 0 {
				return nil, &ProcessingError{Message: "continuation line before first header"}
			}
			cont := strings.Trim(line, " \t")
			fields := head.Headers.Fields()
			fields[n-1].Value += " " + cont
			head.RawHeaders[n-1][1] = append(head.RawHeaders[n-1][1], ' ')
			head.RawHeaders[n-1][1] = append(head.RawHeaders[n-1][1], cont...)
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, &ProcessingError{Message: "malformed header line " + strconv.Quote(line)}
		}
		value = strings.Trim(value, " \t")
		head.Headers.Add(name, value)
		head.RawHeaders = append(head.RawHeaders, [2][]byte{[]byte(name), []byte(value)})
	}

	if err := checkContentLength(head); err != nil {
		return nil, err
	}
	return head, nil
}

// checkContentLength hardens against request smuggling: repeated
// Content-Length fields must agree (RFC 7230 section 3.3.2).
func checkContentLength(head *ResponseHead) error {
	cls := head.Headers.Values("Content-Length")
	if len(cls) <= 1 {
		return nil
	}
	first := textproto.TrimString(cls[0])
	for _, ct := range cls[1:] {
		if first != textproto.TrimString(ct) {
			return &ProcessingError{Message: "conflicting Content-Length headers"}
		}
	}
	head.Headers.Set("Content-Length", first)
	return nil
}

func (p *HTTP1) bodyFor(head *ResponseHead) (io.Reader, error) {
	p.mu.Lock()
	skip := p.skipBody
	p.mu.Unlock()

	switch {
	case skip,
		head.Code >= 100 && head.Code < 200,
		head.Code == 204, head.Code == 304:
		return nil, nil
	}
	if strings.EqualFold(head.Headers.Get("Transfer-Encoding"), "chunked") {
		return chunked.NewReader(p.br), nil
	}
	if cl := head.Headers.Get("Content-Length"); cl != "" {
		n, err := strconv.ParseUint(textproto.TrimString(cl), 10, 63)
		if err != nil {
			return nil, &ProcessingError{Message: "malformed Content-Length " + strconv.Quote(cl)}
		}
		return io.LimitReader(p.br, int64(n)), nil
	}
	// no framing: body runs until the peer closes the connection
	return p.br, nil
}

func parseVersion(s string) (Version, bool) {
	switch s {
	case "HTTP/1.1":
		return Version11, true
	case "HTTP/1.0":
		return Version10, true
	}
	rest, ok := strings.CutPrefix(s, "HTTP/")
	if !ok {
		return Version{}, false
	}
	maj, min, ok := strings.Cut(rest, ".")
	if !ok {
		return Version{}, false
	}
	v := Version{}
	var err error
	if v.Major, err = strconv.Atoi(maj); err != nil {
		return Version{}, false
	}
	if v.Minor, err = strconv.Atoi(min); err != nil {
		return Version{}, false
	}
	return v, true
}
