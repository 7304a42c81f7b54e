package dialer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"strconv"

	"github.com/frankli0324/go-httpcore/internal/header"
	"github.com/frankli0324/go-httpcore/internal/http"
	"github.com/frankli0324/go-httpcore/internal/transport"
)

var proxySchemePorts = map[string]string{
	"http": "80", "https": "443",
}

// dialProxy establishes the connection for a proxied request: a plain
// connection to the proxy for http targets (the request itself uses
// absolute-form), a CONNECT tunnel plus TLS handshake for https
// targets.
func (d *CoreDialer) dialProxy(ctx context.Context, r *http.PreparedRequest) (net.Conn, error) {
	proxy := r.ProxyURL()
	if proxy.Scheme != "http" && proxy.Scheme != "https" {
		return nil, errors.New("httpcore: unsupported proxy scheme:" + proxy.Scheme)
	}
	hp := proxy.Host
	if proxy.Port() == "" {
		hp = net.JoinHostPort(proxy.Hostname(), proxySchemePorts[proxy.Scheme])
	}

	conn, err := zeroDialer.DialContext(ctx, "tcp", hp)
	if err != nil {
		return nil, err
	}

	if proxy.Scheme == "https" {
		tlsCfg := d.TLSConfig
		if d.ProxyConfig != nil && d.ProxyConfig.TLSConfig != nil {
			tlsCfg = d.ProxyConfig.TLSConfig
		}
		tlsCfg = tlsCfg.Clone()
		if tlsCfg == nil {
			tlsCfg = &tls.Config{}
		}
		if tlsCfg.ServerName == "" {
			tlsCfg.ServerName = proxy.Hostname()
		}
		c := tls.Client(conn, tlsCfg)
		if err := c.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, err
		}
		conn = c
	}

	if !r.IsSSL() {
		return conn, nil
	}

	// https through a proxy: tunnel first, then handshake with the
	// origin and run the fingerprint check against its certificate
	if err := d.connectTunnel(ctx, conn, r); err != nil {
		conn.Close()
		return nil, err
	}
	return d.handshake(ctx, conn, r, r.URL.Hostname())
}

// connectTunnel issues the CONNECT request on an established proxy
// connection, carrying proxy auth and proxy headers.
func (d *CoreDialer) connectTunnel(ctx context.Context, conn net.Conn, r *http.PreparedRequest) error {
	host := r.URL.Hostname()
	if d.ProxyConfig != nil && d.ProxyConfig.ResolveLocally {
		resolved, err := d.resolveLocally(ctx, host)
		if err != nil {
			return err
		}
		host = resolved
	}
	target := net.JoinHostPort(host, strconv.Itoa(r.ConnectionKey().Port))

	hdr := header.New("Host", target)
	if r.ProxyAuth != nil {
		hdr.Set("Proxy-Authorization", r.ProxyAuth.Encode())
	}
	for _, f := range r.ProxyHeaders.Fields() {
		hdr.Add(f.Name, f.Value)
	}

	w := transport.NewStreamWriter(conn)
	if err := w.WriteHeaders("CONNECT "+target+" HTTP/1.1", &hdr); err != nil {
		return err
	}
	proto := transport.NewHTTP1(conn)
	proto.SkipNextBody()
	head, body, err := proto.ReadHead(ctx)
	if err != nil {
		return err
	}
	if head.Code != 200 {
		s, _ := io.ReadAll(body)
		return fmt.Errorf("httpcore: proxy server returned error. status:%d, body:%s", head.Code, string(s))
	}
	return nil
}

func (d *CoreDialer) resolveLocally(ctx context.Context, host string) (string, error) {
	cfg := d.ResolveConfig
	if d.ProxyConfig != nil && d.ProxyConfig.ResolveConfig != nil {
		cfg = d.ProxyConfig.ResolveConfig
	}
	if cfg != nil {
		if static, ok := cfg.StaticHosts[host]; ok {
			return static, nil
		}
	}
	ips, err := d.lookup(ctx, cfg, host)
	if err != nil {
		return "", err
	}
	if len(ips) == 0 {
		return "", &net.DNSError{Err: "no addresses", Name: host}
	}
	return ips[rand.Intn(len(ips))].String(), nil
}
