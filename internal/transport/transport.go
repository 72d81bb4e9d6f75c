// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/net/proxy"
)

// =============================================================================
// PROXY PARSING
// =============================================================================

// ProxySpec is a parsed TYPE:HOST:PORT proxy description.
type ProxySpec struct {
	Scheme string
	Host   string
	Port   int
}

// Addr returns the host:port form of the proxy address.
func (p ProxySpec) Addr() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// ParseProxy parses a TYPE:HOST:PORT proxy spec. Supported types are
// socks5, socks5h, socks4, http, and https.
func ParseProxy(spec string) (ProxySpec, error) {
	parts := strings.SplitN(spec, ":", 3)
	if len(parts) != 3 || parts[1] == "" {
		return ProxySpec{}, fmt.Errorf("proxy must be TYPE:HOST:PORT, got %q", spec)
	}

	scheme := strings.ToLower(parts[0])
	switch scheme {
	case "socks5", "socks5h", "socks4", "http", "https":
	default:
		return ProxySpec{}, fmt.Errorf("unsupported proxy type %q", parts[0])
	}

	port, err := strconv.Atoi(parts[2])
	if err != nil || port <= 0 || port > 65535 {
		return ProxySpec{}, fmt.Errorf("invalid proxy port %q", parts[2])
	}

	return ProxySpec{Scheme: scheme, Host: parts[1], Port: port}, nil
}

// =============================================================================
// DIALING
// =============================================================================

const handshakeTimeout = 15 * time.Second

// Dial opens a websocket connection to address, optionally through the
// given proxy spec (empty for a direct connection).
func Dial(ctx context.Context, address, proxySpec string) (*Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}

	if proxySpec != "" {
		spec, err := ParseProxy(proxySpec)
		if err != nil {
			return nil, err
		}
		switch spec.Scheme {
		case "socks5", "socks5h", "socks4":
			// x/net/proxy treats socks5 addresses with remote
			// resolution, which also covers the socks5h and socks4
			// common cases for our purposes.
			socks, err := proxy.SOCKS5("tcp", spec.Addr(), nil, proxy.Direct)
			if err != nil {
				return nil, fmt.Errorf("failed to configure socks proxy: %w", err)
			}
			dialer.NetDialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				if cd, ok := socks.(proxy.ContextDialer); ok {
					return cd.DialContext(ctx, network, addr)
				}
				return socks.Dial(network, addr)
			}
		case "http", "https":
			proxyURL := &url.URL{Scheme: spec.Scheme, Host: spec.Addr()}
			dialer.Proxy = http.ProxyURL(proxyURL)
		}
	}

	ws, _, err := dialer.DialContext(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", address, err)
	}

	return &Conn{ws: ws}, nil
}

// =============================================================================
// CONNECTION WRAPPER
// =============================================================================

// Conn wraps a websocket connection. Reads are single-threaded by the
// session receive loop; writes may come from any goroutine and are
// serialized here.
type Conn struct {
	writeMu sync.Mutex
	ws      *websocket.Conn

	closeOnce sync.Once
}

// ReadFrame blocks until the next text frame arrives and returns its
// payload.
func (c *Conn) ReadFrame() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	return data, nil
}

// WriteJSON marshals v and sends it as a text frame.
func (c *Conn) WriteJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(v)
}

// WriteRaw sends a pre-encoded text frame.
func (c *Conn) WriteRaw(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Close tears down the connection. Safe to call more than once; any
// blocked ReadFrame returns with an error.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.ws.Close()
	})
	return err
}
