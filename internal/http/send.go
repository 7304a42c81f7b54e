package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"syscall"

	"github.com/frankli0324/go-httpcore/internal/transport"
)

// requestTarget picks the request-target form: CONNECT uses
// authority-form, a non-TLS proxied request uses absolute-form,
// everything else origin-form.
func (r *PreparedRequest) requestTarget() string {
	if r.Method == "CONNECT" {
		host := r.URL.Hostname()
		if isIPv6(host) {
			host = "[" + host + "]"
		}
		return host + ":" + strconv.Itoa(r.port())
	}
	if r.proxyURL != nil && !r.IsSSL() {
		return r.URL.String()
	}
	path := r.URL.EscapedPath()
	if path == "" {
		path = "/"
	}
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}
	return path
}

// Send writes the status line and headers synchronously, schedules the
// body-writer task, and returns the Response bound to conn. The
// response is not started yet; [Response.Start] reads the head.
func (r *PreparedRequest) Send(ctx context.Context, conn Connection) (*Response, error) {
	proto := conn.Protocol()
	w := transport.NewStreamWriter(proto)
	w.OnHeadersSent = func() {
		for _, t := range r.Traces {
			if t.RequestHeadersSent != nil {
				t.RequestHeadersSent(r.Method, r.URL, r.Header.Clone())
			}
		}
	}
	w.OnChunkSent = func(chunk []byte) {
		for _, t := range r.Traces {
			if t.RequestChunkSent != nil {
				t.RequestChunkSent(r.Method, r.URL, chunk)
			}
		}
	}

	if r.Compress != "" {
		if err := w.EnableCompression(r.Compress); err != nil {
			return nil, err
		}
	}
	if r.chunked {
		w.EnableChunking()
	}

	// default content-type, only when there is a body to describe
	if r.Body != nil && postMethods[r.Method] && !r.Header.Has("Content-Type") && !r.skipAuto["content-type"] {
		r.Header.Set("Content-Type", "application/octet-stream")
	}

	// the computed Connection header is written only when the caller
	// didn't set one
	if !r.Header.Has("Connection") {
		if r.keepAlive() {
			if r.version == Version10 {
				r.Header.Set("Connection", "keep-alive")
			}
		} else if r.version == Version11 {
			r.Header.Set("Connection", "close")
		}
	}

	statusLine := r.Method + " " + r.requestTarget() + " " + r.version.String()
	if err := w.WriteHeaders(statusLine, &r.Header); err != nil {
		return nil, err
	}

	task := startWriterTask(func(taskCtx context.Context) {
		r.writeBytes(taskCtx, w, conn)
	})
	r.writer.set(task)

	r.response = newResponse(r, task)
	return r.response, nil
}

// writeBytes is the body of the writer task. Failures never escape to
// the scheduler: they are delivered through the protocol's deferred
// exception slot for the reader to observe.
func (r *PreparedRequest) writeBytes(ctx context.Context, w *transport.StreamWriter, conn Connection) {
	proto := conn.Protocol()

	if r.continue100 != nil {
		select {
		case <-r.continue100:
		case <-ctx.Done():
			// cancelled before any body bytes: abort cleanly
			return
		}
	}

	var err error
	if r.Body != nil {
		err = r.Body.WriteTo(ctx, w)
	}
	switch {
	case err == nil:
		w.WriteEOF()
		proto.StartTimeout()
	case errors.Is(err, context.Canceled):
		// best-effort drain, don't leave the stream truncated
		w.WriteEOF()
	case isTimeout(err):
		proto.SetException(err)
	case isOSError(err):
		proto.SetException(&ConnectionWriteError{URL: r.URL.String(), Err: err})
	default:
		proto.SetException(fmt.Errorf("httpcore: failed to send request body: %w", err))
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isOSError(err error) bool {
	var op *net.OpError
	var sys *os.SyscallError
	var errno syscall.Errno
	return errors.As(err, &op) || errors.As(err, &sys) || errors.As(err, &errno)
}

// Close waits for the writer task to finish, for callers that must
// not return while body bytes may still be in flight.
func (r *PreparedRequest) Close(ctx context.Context) error {
	if t := r.writer.get(); t != nil {
		return t.Wait(ctx)
	}
	return nil
}

// Terminate cancels the writer task and detaches its completion
// observer without waiting. Used on forced connection teardown.
func (r *PreparedRequest) Terminate() {
	if t := r.writer.take(); t != nil {
		t.Cancel()
	}
}
