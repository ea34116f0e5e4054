package tor

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/proxy"
)

// Client dials through a running Tor daemon's SOCKS5 port.
// The shell uses it for connectivity self-tests after enabling Tor; the
// rendering engine routes its own traffic via launch flags and never
// touches this dialer.
type Client struct {
	socksAddr string
	dialer    proxy.Dialer
	timeout   time.Duration
}

// NewClient creates a client for the SOCKS5 proxy at socksAddr.
// The constructor performs no network I/O; the proxy does not need to be
// reachable until the first dial.
func NewClient(socksAddr string, timeout time.Duration) (*Client, error) {
	if _, _, err := net.SplitHostPort(socksAddr); err != nil {
		return nil, fmt.Errorf("invalid SOCKS address %q: %w", socksAddr, err)
	}

	// Tor's SOCKS port does not require authentication by default.
	dialer, err := proxy.SOCKS5("tcp", socksAddr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	return &Client{
		socksAddr: socksAddr,
		dialer:    dialer,
		timeout:   timeout,
	}, nil
}

// SocksAddr returns the proxy address this client dials through.
func (c *Client) SocksAddr() string { return c.socksAddr }

// Dial establishes a TCP connection through Tor.
func (c *Client) Dial(network, address string) (net.Conn, error) {
	return c.dialer.Dial(network, address)
}

// HTTPClient returns an HTTP client whose transport routes through Tor.
// Compression is disabled: response-size side channels are a poor trade
// for bandwidth on an anonymity path.
func (c *Client) HTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: func(_ context.Context, network, addr string) (net.Conn, error) {
			return c.dialer.Dial(network, addr)
		},
		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
		DisableCompression:  true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   c.timeout,
	}
}
