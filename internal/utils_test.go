package internal_test

import (
	"context"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/frankli0324/go-httpcore/internal"
	"github.com/frankli0324/go-httpcore/internal/dialer"
	"github.com/frankli0324/go-httpcore/internal/http"
	"github.com/frankli0324/go-httpcore/internal/transport"
)

type CombinedReadWriter struct {
	io.Reader
	io.Writer
}

type TestConn struct {
	proto  *transport.HTTP1
	closer io.Closer
}

func (c *TestConn) Protocol() transport.Protocol { return c.proto }
func (c *TestConn) NetConn() net.Conn            { return nil }
func (c *TestConn) Release()                     { c.closer.Close() }
func (c *TestConn) Close()                       { c.closer.Close() }

type TestDialer struct {
	conn *TestConn
}

// Dial implements dialer.Dialer.
func (t *TestDialer) Dial(ctx context.Context, r *http.PreparedRequest) (http.Connection, error) {
	return t.conn, nil
}

// Unwrap implements dialer.Dialer.
func (t *TestDialer) Unwrap() dialer.Dialer {
	return nil
}

// SendSingleRequest runs req against a canned response and returns a
// reader over the serialized request bytes. The request stream reaches
// EOF once the response has been fully consumed and released.
func SendSingleRequest(t *testing.T, req *http.Request, response string) io.Reader {
	readResponse, writeResponse := io.Pipe()
	go io.Copy(writeResponse, strings.NewReader(response))

	readRequest, writeRequest := io.Pipe()
	c := &internal.Client{}
	c.UseDialer(&TestDialer{&TestConn{
		proto:  transport.NewHTTP1(CombinedReadWriter{readResponse, writeRequest}),
		closer: writeRequest,
	}})
	go func() {
		resp, err := c.CtxDo(context.Background(), req)
		if err != nil {
			t.Error(err)
			writeRequest.Close()
			return
		}
		if _, err := resp.ReadBody(context.Background()); err != nil {
			t.Error(err)
		}
		resp.Close()
	}()
	return readRequest
}
