package http

import (
	"fmt"
	nethttp "net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"
	"golang.org/x/net/idna"

	"github.com/frankli0324/go-httpcore/internal/header"
	"github.com/frankli0324/go-httpcore/internal/transport"
)

// DefaultUserAgent is sent when the caller neither set nor suppressed
// the User-Agent header.
const DefaultUserAgent = "go-httpcore/1.0"

var defaultHeaders = [...][2]string{
	{"Accept", "*/*"},
	{"Accept-Encoding", "gzip, deflate"},
}

// PreparedRequest is the immutable, fully-negotiated form of a
// Request. All header/body conflict rules are resolved by
// [Request.Prepare]; after Send the object must not be mutated.
type PreparedRequest struct {
	*Request

	Method      string
	URL         *url.URL // fragment stripped
	OriginalURL *url.URL
	Header      header.Header
	Body        Payload

	version     transport.Version
	chunked     bool
	auth        *BasicAuth
	proxyURL    *url.URL
	skipAuto    map[string]bool
	continue100 chan struct{}
	writer      taskOwner
	response    *Response
}

// Prepare resolves the draft request into its wire form. It applies
// every negotiation rule deterministically: host/cookie/auth headers,
// content- and transfer-encoding exclusivity, default headers, body
// headers, and the 100-continue waiter.
func (r *Request) Prepare() (*PreparedRequest, error) {
	method := strings.ToUpper(r.Method)
	if method == "" || !httpguts.ValidHeaderFieldName(method) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, r.Method)
	}

	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, err
	}
	if len(r.Params) > 0 {
		q := u.Query()
		for k, vv := range r.Params {
			for _, v := range vv {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	original := *u
	u.Fragment, u.RawFragment = "", ""
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, r.URL)
	}

	pr := &PreparedRequest{
		Request:     r,
		Method:      method,
		URL:         u,
		OriginalURL: &original,
		version:     r.Version,
		chunked:     r.Chunked,
	}
	if pr.version == (transport.Version{}) {
		pr.version = Version11
	}

	pr.updateHost()
	if err := pr.updateHeaders(); err != nil {
		return nil, err
	}
	pr.updateAutoHeaders()
	pr.updateCookies()
	if err := pr.updateContentEncoding(); err != nil {
		return nil, err
	}
	pr.updateAuth()
	if err := pr.updateProxy(); err != nil {
		return nil, err
	}
	if err := pr.updateBody(); err != nil {
		return nil, err
	}
	if pr.Body != nil || !getMethods[method] {
		if err := pr.updateTransferEncoding(); err != nil {
			return nil, err
		}
	}
	pr.updateExpectContinue()
	return pr, nil
}

// ProxyURL returns the parsed proxy URL, nil when the request is
// direct.
func (r *PreparedRequest) ProxyURL() *url.URL { return r.proxyURL }

func (r *PreparedRequest) IsSSL() bool {
	return r.URL.Scheme == "https" || r.URL.Scheme == "wss"
}

func (r *PreparedRequest) port() int {
	if p := r.URL.Port(); p != "" {
		n, _ := strconv.Atoi(p)
		return n
	}
	return defaultPort(r.URL.Scheme)
}

// RequestInfo snapshots the request for error reporting and redirect
// history; it survives after the request is torn down.
func (r *PreparedRequest) RequestInfo() *RequestInfo {
	return &RequestInfo{
		URL:     r.URL,
		Method:  r.Method,
		Headers: r.Header.Clone(),
		RealURL: r.OriginalURL,
	}
}

// updateHost picks up basic auth embedded in the URL userinfo.
func (r *PreparedRequest) updateHost() {
	if user := r.URL.User; user != nil {
		if name := user.Username(); name != "" {
			pass, _ := user.Password()
			r.auth = &BasicAuth{Username: name, Password: pass}
		}
	}
}

// hostHeader builds the Host value: IDN hosts go to ASCII, IPv6
// literals get bracket-wrapped, a trailing dot is stripped, and the
// port appears only when explicit and non-default for the scheme.
func hostHeader(u *url.URL) string {
	host := u.Hostname()
	if !isASCII(host) {
		if a, err := idna.ToASCII(host); err == nil {
			host = a
		}
	}
	host = strings.TrimSuffix(host, ".")
	if isIPv6(host) {
		host = "[" + host + "]"
	}
	if p := u.Port(); p != "" {
		if n, _ := strconv.Atoi(p); n != defaultPort(u.Scheme) {
			host += ":" + p
		}
	}
	return host
}

func (r *PreparedRequest) updateHeaders() error {
	r.Header = header.Header{}
	r.Header.Set("Host", hostHeader(r.URL))

	for _, f := range r.Request.Header.Fields() {
		if !httpguts.ValidHeaderFieldName(f.Name) {
			return fmt.Errorf("httpcore: invalid header name %q", f.Name)
		}
		if !httpguts.ValidHeaderFieldValue(f.Value) {
			return fmt.Errorf("httpcore: invalid value for header %q", f.Name)
		}
		// a caller-supplied Host overrides rather than duplicates
		if strings.EqualFold(f.Name, "Host") {
			r.Header.Set(f.Name, f.Value)
		} else {
			r.Header.Add(f.Name, f.Value)
		}
	}
	return nil
}

func (r *PreparedRequest) updateAutoHeaders() {
	r.skipAuto = make(map[string]bool, len(r.SkipAutoHeaders))
	for _, name := range r.SkipAutoHeaders {
		r.skipAuto[strings.ToLower(name)] = true
	}
	used := func(name string) bool {
		return r.Header.Has(name) || r.skipAuto[strings.ToLower(name)]
	}
	for _, def := range defaultHeaders {
		if !used(def[0]) {
			r.Header.Add(def[0], def[1])
		}
	}
	if !used("User-Agent") {
		r.Header.Set("User-Agent", DefaultUserAgent)
	}
}

// updateCookies folds an existing Cookie header and the caller's
// cookies into a single header, caller's values winning by name.
func (r *PreparedRequest) updateCookies() {
	if len(r.Cookies) == 0 {
		return
	}
	var jar []*nethttp.Cookie
	if existing := r.Header.Get("Cookie"); existing != "" {
		parse := nethttp.Request{Header: nethttp.Header{"Cookie": {existing}}}
		jar = parse.Cookies()
		r.Header.Del("Cookie")
	}
	for _, c := range r.Cookies {
		replaced := false
		for i, old := range jar {
			if old.Name == c.Name {
				jar[i] = c
				replaced = true
				break
			}
		}
		if !replaced {
			jar = append(jar, c)
		}
	}
	parts := make([]string, 0, len(jar))
	for _, c := range jar {
		// values are passed through as given, pre-encoded ones intact
		parts = append(parts, c.Name+"="+c.Value)
	}
	r.Header.Set("Cookie", strings.Join(parts, "; "))
}

func (r *PreparedRequest) updateContentEncoding() error {
	if r.Request.Body == nil {
		return nil
	}
	if r.Header.Get("Content-Encoding") != "" {
		if r.Compress != "" {
			return fmt.Errorf("%w: compress can not be set if Content-Encoding header is set", ErrConfigConflict)
		}
		return nil
	}
	if r.Compress != "" {
		r.Header.Set("Content-Encoding", r.Compress)
		// compressed size is unknown before encoding
		r.chunked = true
	}
	return nil
}

// updateAuth resolves credentials: explicit argument, then URL
// userinfo, then a netrc entry when the environment is trusted.
func (r *PreparedRequest) updateAuth() {
	auth := r.Auth
	if auth == nil {
		auth = r.auth
	}
	if auth == nil && r.TrustEnv {
		if a, ok := netrcAuth(r.URL.Hostname()); ok {
			auth = &a
		}
	}
	if auth == nil {
		return
	}
	r.auth = auth
	r.Header.Set("Authorization", auth.Encode())
}

func (r *PreparedRequest) updateProxy() error {
	if r.Proxy == "" {
		return nil
	}
	u, err := url.Parse(r.Proxy)
	if err != nil {
		return err
	}
	r.proxyURL = u
	return nil
}

func (r *PreparedRequest) updateBody() error {
	p, err := resolvePayload(r.Request.Body)
	if err != nil || p == nil {
		return err
	}
	r.Body = p

	// enable chunked encoding if needed
	if !r.chunked && !r.Header.Has("Content-Length") {
		if size := p.Size(); size < 0 {
			r.chunked = true
		} else {
			r.Header.Set("Content-Length", strconv.FormatInt(size, 10))
		}
	}

	// body headers merge last, never overwriting caller-set or
	// skip-listed headers
	for _, f := range p.Headers().Fields() {
		if r.Header.Has(f.Name) || r.skipAuto[strings.ToLower(f.Name)] {
			continue
		}
		r.Header.Set(f.Name, f.Value)
	}
	return nil
}

func (r *PreparedRequest) updateTransferEncoding() error {
	te := strings.ToLower(r.Header.Get("Transfer-Encoding"))
	if strings.Contains(te, "chunked") {
		if r.chunked {
			return fmt.Errorf("%w: chunked can not be set if \"Transfer-Encoding: chunked\" header is set", ErrConfigConflict)
		}
		return nil
	}
	if r.chunked {
		if r.Header.Has("Content-Length") {
			return fmt.Errorf("%w: chunked can not be set if Content-Length header is set", ErrConfigConflict)
		}
		r.Header.Set("Transfer-Encoding", "chunked")
		return nil
	}
	if !r.Header.Has("Content-Length") {
		var size int64
		if r.Body != nil {
			size = r.Body.Size()
		}
		r.Header.Set("Content-Length", strconv.FormatInt(size, 10))
	}
	return nil
}

func (r *PreparedRequest) updateExpectContinue() {
	expect := r.Expect100
	if expect {
		r.Header.Set("Expect", "100-continue")
	} else if strings.EqualFold(r.Header.Get("Expect"), "100-continue") {
		expect = true
	}
	if expect {
		r.continue100 = make(chan struct{})
	}
}

// keepAlive implements the reuse matrix: pre-1.0 never, 1.0 only on
// explicit keep-alive, 1.1 unless explicit close.
func (r *PreparedRequest) keepAlive() bool {
	if r.version.Less(Version10) {
		return false
	}
	conn := r.Header.Get("Connection")
	if r.version == Version10 {
		return strings.EqualFold(conn, "keep-alive")
	}
	return !strings.EqualFold(conn, "close")
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
