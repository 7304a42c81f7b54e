package http

import (
	"crypto/tls"
	"encoding/base64"
	nethttp "net/http"
	"net/url"

	"github.com/frankli0324/go-httpcore/internal/header"
	"github.com/frankli0324/go-httpcore/internal/transport"
)

type Header = header.Header

type Version = transport.Version

var (
	Version10 = transport.Version10
	Version11 = transport.Version11
)

type BasicAuth struct {
	Username string
	Password string
}

// Encode returns the Authorization header value.
func (a BasicAuth) Encode() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(a.Username+":"+a.Password))
}

// RequestInfo is an immutable snapshot of the request taken at send
// time. It survives the request object itself, for error reporting
// and redirect history.
type RequestInfo struct {
	URL     *url.URL
	Method  string
	Headers header.Header
	RealURL *url.URL
}

// Request is the caller-facing draft request. It is consumed by
// [Request.Prepare], which resolves every negotiation rule into a
// *PreparedRequest; the draft itself is never written to the wire.
type Request struct {
	Method string
	URL    string

	// Params are merged into the URL query string at prepare time.
	Params url.Values

	Header  header.Header
	Body    interface{} // resolved to a Payload once, at Prepare
	Cookies []*nethttp.Cookie

	// SkipAutoHeaders suppresses default headers (Accept,
	// Accept-Encoding, User-Agent, Content-Type) by name.
	SkipAutoHeaders []string

	Auth     *BasicAuth
	TrustEnv bool // allow netrc lookup when no other auth is given

	Version   Version // zero value means HTTP/1.1
	Compress  string  // request body content coding: "gzip" or "deflate"
	Chunked   bool
	Expect100 bool

	Proxy        string
	ProxyAuth    *BasicAuth
	ProxyHeaders header.Header

	TLSConfig      *tls.Config
	Fingerprint    *Fingerprint
	ServerHostname string

	Traces []*ClientTrace
}

var getMethods = map[string]bool{
	"GET": true, "HEAD": true, "OPTIONS": true, "TRACE": true,
}

var postMethods = map[string]bool{
	"PATCH": true, "POST": true, "PUT": true,
}
