package http

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/frankli0324/go-httpcore/internal/transport"
)

type fakeRW struct {
	io.Reader
	io.Writer
}

type fakeConn struct {
	proto    *transport.HTTP1
	released atomic.Int32
	closed   atomic.Int32
}

func newFakeConn(wire string) *fakeConn {
	return &fakeConn{proto: transport.NewHTTP1(fakeRW{strings.NewReader(wire), io.Discard})}
}

func (c *fakeConn) Protocol() transport.Protocol { return c.proto }
func (c *fakeConn) NetConn() net.Conn            { return nil }
func (c *fakeConn) Release()                     { c.released.Add(1) }
func (c *fakeConn) Close()                       { c.closed.Add(1) }

func sendOn(t *testing.T, req *Request, wire string) (*Response, *fakeConn) {
	t.Helper()
	pr := mustPrepare(t, req)
	conn := newFakeConn(wire)
	resp, err := pr.Send(context.Background(), conn)
	if err != nil {
		t.Fatal(err)
	}
	if err := resp.Start(context.Background(), conn); err != nil {
		t.Fatal(err)
	}
	return resp, conn
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal(msg)
}

func TestReadBodyCached(t *testing.T) {
	resp, conn := sendOn(t, &Request{Method: "GET", URL: "http://example.com/"},
		"HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello")
	body, err := resp.ReadBody(context.Background())
	if err != nil || string(body) != "hello" {
		t.Fatalf("body = %q, %v", body, err)
	}
	again, err := resp.ReadBody(context.Background())
	if err != nil || string(again) != "hello" {
		t.Fatalf("cached body = %q, %v", again, err)
	}
	eventually(t, func() bool { return conn.released.Load() == 1 }, "connection not pooled after full read")
	if conn.closed.Load() != 0 {
		t.Error("connection closed instead of pooled")
	}
}

func TestReadBodyAfterRelease(t *testing.T) {
	resp, conn := sendOn(t, &Request{Method: "GET", URL: "http://example.com/"},
		"HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello")
	resp.Release()
	if _, err := resp.ReadBody(context.Background()); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("err = %v, want ErrConnectionClosed", err)
	}
	// the failed read must not demote the released connection to closed
	eventually(t, func() bool { return conn.released.Load() == 1 }, "release did not pool the connection")
	if conn.closed.Load() != 0 {
		t.Error("read after release tore down the pooled connection")
	}
}

func TestCloseAfterReleaseKeepsPooled(t *testing.T) {
	resp, conn := sendOn(t, &Request{Method: "GET", URL: "http://example.com/"},
		"HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello")
	resp.Release()
	resp.Close()
	eventually(t, func() bool { return conn.released.Load() == 1 }, "released connection never pooled")
	if conn.closed.Load() != 0 {
		t.Error("Close after Release closed the pooled connection")
	}
	if !resp.Closed() {
		t.Error("response not marked closed")
	}
}

func TestReadCachedBodyAfterRelease(t *testing.T) {
	resp, _ := sendOn(t, &Request{Method: "GET", URL: "http://example.com/"},
		"HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello")
	if _, err := resp.ReadBody(context.Background()); err != nil {
		t.Fatal(err)
	}
	resp.Release()
	if _, err := resp.ReadBody(context.Background()); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("err = %v, want ErrConnectionClosed", err)
	}
}

func TestCloseTearsDownConnection(t *testing.T) {
	resp, conn := sendOn(t, &Request{Method: "GET", URL: "http://example.com/"},
		"HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello")
	resp.Close()
	if conn.closed.Load() != 1 {
		t.Error("connection not closed")
	}
	if conn.released.Load() != 0 {
		t.Error("closed connection also pooled")
	}
	if !resp.Closed() {
		t.Error("response not marked closed")
	}
}

func TestErrForStatus(t *testing.T) {
	resp, _ := sendOn(t, &Request{Method: "GET", URL: "http://example.com/"},
		"HTTP/1.1 404 Not Found\r\nContent-Length: 0\r\n\r\n")
	if resp.OK() {
		t.Error("404 reported OK")
	}
	var respErr *ResponseError
	if err := resp.ErrForStatus(); !errors.As(err, &respErr) || respErr.Status != 404 {
		t.Errorf("err = %v", err)
	}

	ok, _ := sendOn(t, &Request{Method: "GET", URL: "http://example.com/"},
		"HTTP/1.1 302 Found\r\nContent-Length: 0\r\n\r\n")
	if err := ok.ErrForStatus(); err != nil {
		t.Errorf("302 err = %v", err)
	}
}

func TestInformationalDiscarded(t *testing.T) {
	resp, _ := sendOn(t, &Request{Method: "GET", URL: "http://example.com/"},
		"HTTP/1.1 102 Processing\r\n\r\n"+
			"HTTP/1.1 103 Early Hints\r\nLink: </style.css>; rel=preload\r\n\r\n"+
			"HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok")
	if resp.Status != 200 {
		t.Fatalf("status = %d", resp.Status)
	}
	if body, _ := resp.ReadBody(context.Background()); string(body) != "ok" {
		t.Errorf("body = %q", body)
	}
}

type notifyPayload struct {
	wrote chan struct{}
}

func (p *notifyPayload) Size() int64     { return 4 }
func (p *notifyPayload) Headers() Header { return Header{} }
func (p *notifyPayload) WriteTo(ctx context.Context, w io.Writer) error {
	defer close(p.wrote)
	_, err := w.Write([]byte("data"))
	return err
}

func TestExpectContinueHandshake(t *testing.T) {
	payload := &notifyPayload{wrote: make(chan struct{})}
	resp, _ := sendOn(t, &Request{
		Method: "POST", URL: "http://example.com/", Body: payload, Expect100: true,
	}, "HTTP/1.1 100 Continue\r\n\r\nHTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok")

	if resp.Status != 200 {
		t.Fatalf("status = %d", resp.Status)
	}
	select {
	case <-payload.wrote:
	case <-time.After(2 * time.Second):
		t.Fatal("body never written after 100 Continue")
	}
	if body, err := resp.ReadBody(context.Background()); err != nil || string(body) != "ok" {
		t.Errorf("body = %q, %v", body, err)
	}
}

func TestExpectContinueCancelledWriter(t *testing.T) {
	payload := &notifyPayload{wrote: make(chan struct{})}
	resp, conn := sendOn(t, &Request{
		Method: "POST", URL: "http://example.com/", Body: payload, Expect100: true,
	}, "HTTP/1.1 417 Expectation Failed\r\nContent-Length: 0\r\n\r\n")

	if resp.Status != 417 {
		t.Fatalf("status = %d", resp.Status)
	}
	// the server never sent 100: releasing must cancel the parked
	// writer and still hand the connection back
	resp.Release()
	eventually(t, func() bool { return conn.released.Load() == 1 }, "connection stuck behind parked writer")
	select {
	case <-payload.wrote:
		t.Error("body written without continuation")
	default:
	}
}

// stubbornPayload ignores cancellation, standing in for a write stuck
// in a syscall.
type stubbornPayload struct {
	unblock chan struct{}
}

func (p *stubbornPayload) Size() int64     { return -1 }
func (p *stubbornPayload) Headers() Header { return Header{} }
func (p *stubbornPayload) WriteTo(ctx context.Context, w io.Writer) error {
	<-p.unblock
	return nil
}

func TestReleaseWaitsForWriter(t *testing.T) {
	payload := &stubbornPayload{unblock: make(chan struct{})}
	resp, conn := sendOn(t, &Request{
		Method: "POST", URL: "http://example.com/", Body: payload,
	}, "HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n")

	resp.Release()
	time.Sleep(20 * time.Millisecond)
	if conn.released.Load() != 0 {
		t.Fatal("connection pooled while the writer was still running")
	}
	close(payload.unblock)
	eventually(t, func() bool { return conn.released.Load() == 1 }, "connection never pooled after writer finished")
}

func TestUpgradeLeavesConnectionAlone(t *testing.T) {
	resp, conn := sendOn(t, &Request{Method: "GET", URL: "http://example.com/"},
		"HTTP/1.1 101 Switching Protocols\r\nUpgrade: websocket\r\n\r\n")
	if resp.Status != 101 {
		t.Fatalf("status = %d", resp.Status)
	}
	if _, err := resp.ReadBody(context.Background()); err != nil {
		t.Fatal(err)
	}
	if conn.released.Load() != 0 || conn.closed.Load() != 0 {
		t.Error("upgraded connection pooled or closed")
	}
}

func TestSetCookieParsed(t *testing.T) {
	resp, _ := sendOn(t, &Request{Method: "GET", URL: "http://example.com/"},
		"HTTP/1.1 200 OK\r\n"+
			"Set-Cookie: sid=abc; Path=/\r\n"+
			"Set-Cookie: bad\x7f\r\n"+
			"Set-Cookie: lang=en\r\n"+
			"Content-Length: 0\r\n\r\n")
	cookies := resp.Cookies()
	if len(cookies) != 2 || cookies[0].Name != "sid" || cookies[1].Name != "lang" {
		t.Errorf("cookies = %v", cookies)
	}
}

func TestMalformedHeadToResponseError(t *testing.T) {
	pr := mustPrepare(t, &Request{Method: "GET", URL: "http://example.com/"})
	conn := newFakeConn("garbage that is not HTTP\r\n\r\n")
	resp, err := pr.Send(context.Background(), conn)
	if err != nil {
		t.Fatal(err)
	}
	err = resp.Start(context.Background(), conn)
	var respErr *ResponseError
	if !errors.As(err, &respErr) {
		t.Fatalf("err = %v, want ResponseError", err)
	}
	if respErr.RequestInfo == nil || respErr.RequestInfo.URL.Host != "example.com" {
		t.Error("request snapshot missing from error")
	}
}
