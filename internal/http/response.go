package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"mime"
	nethttp "net/http"
	"net/url"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/net/html/charset"

	"github.com/frankli0324/go-httpcore/internal/header"
	"github.com/frankli0324/go-httpcore/internal/transport"
)

// Response is the streaming response bound to a connection
// reservation. It starts Unstarted, becomes Open after Start, and
// reaches exactly one of two terminal states: Released (connection
// handed back to the pool alive) or Closed (connection torn down).
// The connection is never handed back while the body-writer task of
// the originating request is still running.
type Response struct {
	Method  string
	Version transport.Version
	Status  int
	Reason  string

	mu          sync.Mutex
	headers     header.Header
	rawHeaders  [][2][]byte
	url         *url.URL
	realURL     *url.URL
	requestInfo *RequestInfo
	history     []*Response
	cookies     []*nethttp.Cookie
	traces      []*ClientTrace

	content     *transport.BodyStream
	conn        Connection
	writer      taskOwner
	continue100 chan struct{}

	body     []byte
	bodyRead bool
	closed   bool
	released bool

	// optional session-supplied charset sniffing fallback
	resolveCharset func(*Response, []byte) string

	cdOnce             sync.Once
	contentDisposition *ContentDisposition
}

func newResponse(req *PreparedRequest, task *writerTask) *Response {
	resp := &Response{
		Method:      req.Method,
		url:         req.URL,
		realURL:     req.OriginalURL,
		requestInfo: req.RequestInfo(),
		continue100: req.continue100,
		traces:      req.Traces,
		closed:      true, // not started yet
	}
	resp.writer.set(task)
	// a response dropped while open leaks its connection reservation;
	// make that loud instead of silently correcting it
	runtime.SetFinalizer(resp, func(r *Response) {
		if !r.Closed() {
			log.Printf("http: unclosed response for %s, closing leaked connection", r.url)
			r.Close()
		}
	})
	return resp
}

func (r *Response) URL() *url.URL              { return r.url }
func (r *Response) RealURL() *url.URL          { return r.realURL }
func (r *Response) RequestInfo() *RequestInfo  { return r.requestInfo }
func (r *Response) RawHeaders() [][2][]byte    { return r.rawHeaders }
func (r *Response) Cookies() []*nethttp.Cookie { return r.cookies }

func (r *Response) Headers() *header.Header { return &r.headers }

// History is the ordered sequence of prior responses when a
// redirect-following caller recorded them. Immutable once the
// response has started.
func (r *Response) History() []*Response { return r.history }

// SetHistory is called by a redirect-following caller before the
// response is exposed.
func (r *Response) SetHistory(history []*Response) {
	r.history = history
}

func (r *Response) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// OK reports whether Status is below 400. Not a check for 200.
func (r *Response) OK() bool { return r.Status < 400 }

// ErrForStatus releases the response and returns a *ResponseError for
// statuses >= 400, nil otherwise.
func (r *Response) ErrForStatus() error {
	if r.OK() {
		return nil
	}
	r.Release()
	return &ResponseError{
		RequestInfo: r.requestInfo,
		History:     r.history,
		Status:      r.Status,
		Message:     r.Reason,
		Headers:     r.headers,
	}
}

// Start reads the response head off the connection: informational
// responses are discarded (except 101), the continuation waiter is
// resolved the first time one is seen, and Set-Cookie headers are
// parsed leniently.
func (r *Response) Start(ctx context.Context, conn Connection) error {
	r.mu.Lock()
	r.closed = false
	r.conn = conn
	r.mu.Unlock()

	proto := conn.Protocol()
	var head *transport.ResponseHead
	var body *transport.BodyStream
	for {
		if r.Method == "HEAD" || r.Method == "CONNECT" {
			if sb, ok := proto.(interface{ SkipNextBody() }); ok {
				sb.SkipNextBody()
			}
		}
		var err error
		head, body, err = proto.ReadHead(ctx)
		if err != nil {
			return r.startError(err)
		}
		if head.Code < 100 || head.Code > 199 || head.Code == 101 {
			break
		}
		if r.continue100 != nil {
			close(r.continue100)
			r.continue100 = nil
		}
	}

	body.OnEOF(r.responseEOF)

	r.mu.Lock()
	r.Version = head.Version
	r.Status = head.Code
	r.Reason = head.Reason
	r.headers = head.Headers
	r.rawHeaders = head.RawHeaders
	r.content = body
	r.mu.Unlock()

	for _, line := range r.headers.Values("Set-Cookie") {
		c, err := nethttp.ParseSetCookie(line)
		if err != nil {
			log.Printf("http: can not load response cookies: %v", err)
			continue
		}
		r.cookies = append(r.cookies, c)
	}
	return nil
}

func (r *Response) startError(err error) error {
	var pe *transport.ProcessingError
	if errors.As(err, &pe) {
		return &ResponseError{
			RequestInfo: r.requestInfo,
			History:     r.history,
			Message:     pe.Message,
			Err:         err,
		}
	}
	return err
}

// responseEOF runs when the payload completes naturally. It follows
// the same path as an explicit release, except that an upgraded
// connection is left alone entirely: it has switched protocols and
// must be neither pooled nor closed here.
func (r *Response) responseEOF() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if r.conn != nil && r.conn.Protocol().Upgraded() {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()
	r.cleanupWriter()
	r.releaseConn()
}

// Release marks the response closed and returns the connection to the
// pool alive. The actual hand-back is deferred until the writer task
// (if any) has completed.
func (r *Response) Release() {
	r.mu.Lock()
	if !r.released {
		r.notifyContentLocked()
	}
	r.closed = true
	r.mu.Unlock()
	r.cleanupWriter()
	r.releaseConn()
}

// Close tears the connection down instead of pooling it. Used when
// the response must not be reused. Once the response has entered the
// released path the connection belongs to the pool hand-back and Close
// no longer touches it: Released and Closed are mutually exclusive
// terminal states.
func (r *Response) Close() {
	r.mu.Lock()
	if r.released {
		r.closed = true
		r.mu.Unlock()
		return
	}
	r.notifyContentLocked()
	r.closed = true
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()
	r.cleanupWriter()
	if conn != nil {
		conn.Close()
	}
}

// WaitForClose waits for the writer task to stop, then releases.
func (r *Response) WaitForClose(ctx context.Context) error {
	if t := r.writer.get(); t != nil {
		if err := t.Wait(ctx); err != nil {
			return err
		}
	}
	r.Release()
	return nil
}

// notifyContentLocked fails the content stream so future reads fail
// predictably. Caller holds r.mu.
func (r *Response) notifyContentLocked() {
	if r.content != nil && r.content.Exception() == nil {
		r.content.SetException(ErrConnectionClosed)
	}
	r.released = true
}

func (r *Response) cleanupWriter() {
	if t := r.writer.get(); t != nil {
		t.Cancel()
	}
}

// releaseConn hands the connection back to the pool, chained through
// the writer's completion observer: a connection is never pool-
// eligible while a body write might still be touching it.
func (r *Response) releaseConn() {
	r.mu.Lock()
	if r.conn == nil {
		r.mu.Unlock()
		return
	}
	t := r.writer.get()
	if t == nil {
		conn := r.conn
		r.conn = nil
		r.mu.Unlock()
		conn.Release()
		return
	}
	r.mu.Unlock()
	t.onDone(r.releaseConn)
}

func (r *Response) waitReleased(ctx context.Context) error {
	if t := r.writer.get(); t != nil {
		if err := t.Wait(ctx); err != nil {
			return err
		}
	}
	r.releaseConn()
	return nil
}

// ReadBody reads the payload fully, caches it, and releases the
// connection once the writer task has finished. A second call returns
// the cached bytes without touching the connection; calling after an
// explicit release fails with ErrConnectionClosed.
func (r *Response) ReadBody(ctx context.Context) ([]byte, error) {
	r.mu.Lock()
	if !r.bodyRead {
		content := r.content
		r.mu.Unlock()
		if content == nil {
			return nil, ErrConnectionClosed
		}
		body, err := content.ReadAll()
		if err != nil {
			r.Close()
			return nil, err
		}
		r.mu.Lock()
		r.body = body
		r.bodyRead = true
		r.mu.Unlock()
		for _, t := range r.traces {
			if t.ResponseChunkReceived != nil {
				t.ResponseChunkReceived(r.Method, r.url, body)
			}
		}
	} else if r.released {
		r.mu.Unlock()
		return nil, ErrConnectionClosed
	} else {
		r.mu.Unlock()
	}

	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil || !conn.Protocol().Upgraded() {
		if err := r.waitReleased(ctx); err != nil {
			return nil, err
		}
	}
	return r.body, nil
}

// GetEncoding resolves the body charset: Content-Type parameter when
// resolvable, UTF-8 for the JSON family, otherwise a sniff over the
// already-read body.
func (r *Response) GetEncoding() (string, error) {
	ctype := r.headers.Get("Content-Type")
	mediatype, params, _ := mime.ParseMediaType(ctype)

	if label := params["charset"]; label != "" {
		if enc, name := charset.Lookup(label); enc != nil {
			return name, nil
		}
	}
	if isJSONMediaType(mediatype) {
		// RFC 7159: default encoding is UTF-8
		return "utf-8", nil
	}

	r.mu.Lock()
	body, ok := r.body, r.bodyRead
	r.mu.Unlock()
	if !ok {
		return "", ErrEncodingUndetermined
	}
	if r.resolveCharset != nil {
		return r.resolveCharset(r, body), nil
	}
	_, name, _ := charset.DetermineEncoding(body, ctype)
	return name, nil
}

// SetCharsetResolver installs a session-supplied charset sniffing
// fallback, consulted only when headers don't determine one.
func (r *Response) SetCharsetResolver(fn func(*Response, []byte) string) {
	r.resolveCharset = fn
}

// Text reads the body and decodes it with the resolved encoding.
func (r *Response) Text(ctx context.Context) (string, error) {
	body, err := r.ReadBody(ctx)
	if err != nil {
		return "", err
	}
	name, err := r.GetEncoding()
	if err != nil {
		return "", err
	}
	if name == "utf-8" {
		return string(body), nil
	}
	enc, _ := charset.Lookup(name)
	if enc == nil {
		return string(body), nil
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// JSON reads the body and decodes it into v. The content type must be
// in the application/json family unless expectCT overrides it; an
// explicit empty override disables the check.
func (r *Response) JSON(ctx context.Context, v interface{}, expectCT ...string) error {
	body, err := r.ReadBody(ctx)
	if err != nil {
		return err
	}
	expected := "application/json"
	if len(expectCT) > 0 {
		expected = expectCT[0]
	}
	if expected != "" {
		actual, _, _ := mime.ParseMediaType(r.headers.Get("Content-Type"))
		if !isExpectedContentType(actual, expected) {
			return &ContentTypeError{
				RequestInfo: r.requestInfo,
				Status:      r.Status,
				ContentType: actual,
			}
		}
	}
	return json.Unmarshal(body, v)
}

func isJSONMediaType(mediatype string) bool {
	// RFC 7483 defines application/rdap+json
	return mediatype == "application/json" ||
		(strings.HasPrefix(mediatype, "application/") && strings.HasSuffix(mediatype, "+json"))
}

func isExpectedContentType(actual, expected string) bool {
	if expected == "application/json" {
		return isJSONMediaType(actual)
	}
	return strings.Contains(actual, expected)
}
