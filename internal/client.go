package internal

import (
	"context"

	"github.com/frankli0324/go-httpcore/internal/dialer"
	"github.com/frankli0324/go-httpcore/internal/http"
)

type PreparedRequest = http.PreparedRequest

type Handler = func(ctx context.Context, req *PreparedRequest) (*http.Response, error)
type Middleware func(next Handler) Handler

type Client struct {
	middlewares []Middleware
	dialer      dialer.Dialer
}

// Use appends mw to the end of the chain. The last "Use"d mw executes first
func (c *Client) Use(mws ...Middleware) {
	c.middlewares = append(c.middlewares, mws...)
}

// UseDialer replaces the dialer the client checks connections out
// with. Passing nil restores the default.
func (c *Client) UseDialer(d dialer.Dialer) {
	c.dialer = d
}

var defaultDialer = &dialer.CoreDialer{}

func (c *Client) dial(ctx context.Context, req *PreparedRequest) (http.Connection, error) {
	if c.dialer != nil {
		return c.dialer.Dial(ctx, req)
	}
	return defaultDialer.Dial(ctx, req)
}

// CtxDo prepares the request, checks a connection out, writes the
// request, and reads the response head. The returned response is
// streaming: the caller owns the connection reservation until it reads
// the body to EOF, Releases, or Closes the response.
func (c *Client) CtxDo(ctx context.Context, req *http.Request) (*http.Response, error) {
	pr, err := req.Prepare()
	if err != nil {
		return nil, err
	}
	next := func(ctx context.Context, req *PreparedRequest) (*http.Response, error) {
		conn, err := c.dial(ctx, req)
		if err != nil {
			return nil, err
		}
		resp, err := req.Send(ctx, conn)
		if err != nil {
			req.Terminate()
			conn.Close()
			return nil, err
		}
		if err := resp.Start(ctx, conn); err != nil {
			req.Terminate()
			conn.Close()
			return nil, err
		}
		return resp, nil
	}
	for _, mw := range c.middlewares {
		next = mw(next)
	}
	return next(ctx, pr)
}
