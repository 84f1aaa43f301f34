package proxy

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

const Timeout = 120 * time.Second

// NewClient returns an http.Client for the OpenAI API. An empty addr means
// a direct connection; otherwise addr is a SOCKS5 proxy given either as
// host:port or socks5://[user:pass@]host:port.
func NewClient(addr string) (*http.Client, error) {
	if addr == "" {
		return &http.Client{Timeout: Timeout}, nil
	}
	return NewSocksClient(addr)
}

func NewSocksClient(socksAddr string) (*http.Client, error) {
	host, auth, err := ParseAddr(socksAddr)
	if err != nil {
		return nil, err
	}

	dialer, err := proxy.SOCKS5("tcp", host, auth, proxy.Direct)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		},
		TLSHandshakeTimeout: 15 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   Timeout,
	}, nil
}

func ParseAddr(s string) (string, *proxy.Auth, error) {
	if !strings.Contains(s, "://") {
		s = "socks5://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", nil, fmt.Errorf("proxy address: %w", err)
	}
	if u.Scheme != "socks5" && u.Scheme != "socks5h" {
		return "", nil, fmt.Errorf("proxy address: unsupported scheme %q", u.Scheme)
	}
	if u.Port() == "" {
		return "", nil, fmt.Errorf("proxy address: missing port in %q", u.Host)
	}

	var auth *proxy.Auth
	if u.User != nil {
		pass, _ := u.User.Password()
		auth = &proxy.Auth{User: u.User.Username(), Password: pass}
	}
	return u.Host, auth, nil
}
