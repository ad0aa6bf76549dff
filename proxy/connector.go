// Copyright 2026 The Corridor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package proxy

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/corridor-net/corridor"
	"github.com/corridor-net/corridor/proxy/httpconnect"
	"github.com/corridor-net/corridor/proxy/socks4"
	"github.com/corridor-net/corridor/proxy/socks5"
	"github.com/corridor-net/corridor/transport"
)

const defaultConnectTimeout = 10 * time.Second

// Connector establishes tunneled connections: it asks its [Selector] which
// proxy to use for a destination, opens a raw connection to the proxy (or to
// the destination itself when direct), and negotiates the tunnel with the
// protocol the selected [Config] calls for.
//
// Connector implements [transport.StreamDialer], so it stacks under any
// dialer-based client. Concurrent attempts are independent; the only state
// shared across attempts is the Selector.
//
// Every failure is returned wrapped in a [corridor.UnprocessedRequestError]:
// nothing was sent to the destination, so the attempt is always safe to
// retry. The cause chain distinguishes raw transport errors (the proxy was
// never reached) from [ConnectError] (the proxy rejected the tunnel) and
// [HandshakeTimeoutError].
type Connector struct {
	selector       Selector
	dialer         transport.StreamDialer
	scheme         string
	connectTimeout time.Duration
	logger         *slog.Logger
}

var _ transport.StreamDialer = (*Connector)(nil)

// ConnectorOption configures a [Connector].
type ConnectorOption func(*Connector)

// WithRawDialer sets the dialer used to open connections to the proxy, or to
// the destination when direct. Defaults to a plain TCP dialer.
func WithRawDialer(d transport.StreamDialer) ConnectorOption {
	return func(c *Connector) { c.dialer = d }
}

// WithConnectTimeout bounds the tunnel handshake: if the proxy does not
// complete the negotiation within d, the attempt fails with a
// [HandshakeTimeoutError]. Defaults to 10 seconds.
func WithConnectTimeout(d time.Duration) ConnectorOption {
	return func(c *Connector) { c.connectTimeout = d }
}

// WithScheme sets the application protocol hint passed to the selector.
// Defaults to "https".
func WithScheme(scheme string) ConnectorOption {
	return func(c *Connector) { c.scheme = scheme }
}

// WithLogger sets the logger for advisory events, such as a panicking
// ConnectFailed hook. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) ConnectorOption {
	return func(c *Connector) { c.logger = l }
}

// NewConnector returns a Connector using the given selector. A nil selector
// means every connection is direct.
func NewConnector(selector Selector, opts ...ConnectorOption) *Connector {
	if selector == nil {
		selector = NewFixedSelector(Direct())
	}
	c := &Connector{
		selector:       selector,
		dialer:         &transport.TCPDialer{},
		scheme:         "https",
		connectTimeout: defaultConnectTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// DialStream implements [transport.StreamDialer]. It returns a connection
// over which the destination can be spoken to as if connected directly,
// including any bytes the proxy already forwarded.
func (c *Connector) DialStream(ctx context.Context, destAddr string) (transport.StreamConn, error) {
	cfg, err := c.selectProxy(destAddr)
	if err != nil {
		return nil, &corridor.UnprocessedRequestError{Cause: err}
	}

	raddr := destAddr
	if cfg.Type() != TypeDirect {
		raddr = cfg.ProxyAddress()
	}
	conn, err := c.dialer.DialStream(ctx, raddr)
	if err != nil {
		if cfg.Type() != TypeDirect {
			c.notifyConnectFailed(destAddr, cfg.ProxyAddress(), err)
		}
		return nil, &corridor.UnprocessedRequestError{Cause: err}
	}
	if cfg.Type() == TypeDirect {
		return conn, nil
	}

	tunnel, err := c.negotiate(ctx, cfg, conn, destAddr)
	if err != nil {
		conn.Close()
		c.logger.Debug("proxy handshake failed",
			"proxy", cfg.ProxyAddress(), "destination", destAddr, "error", err)
		c.notifyConnectFailed(destAddr, cfg.ProxyAddress(), err)
		return nil, &corridor.UnprocessedRequestError{Cause: err}
	}
	return tunnel, nil
}

// selectProxy consults the selector, converting a panic into an error so
// that selector bugs fail the one attempt instead of the process.
func (c *Connector) selectProxy(destAddr string) (cfg Config, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("proxy selector panicked: %v", r)
		}
	}()
	return c.selector.SelectProxy(c.scheme, destAddr)
}

func (c *Connector) notifyConnectFailed(destAddr, proxyAddr string, cause error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("proxy selector ConnectFailed hook panicked",
				"proxy", proxyAddr, "destination", destAddr, "panic", r)
		}
	}()
	c.selector.ConnectFailed(c.scheme, destAddr, proxyAddr, cause)
}

// negotiate runs the tunnel handshake for cfg over conn. The connection
// deadline bounds the whole exchange; a context cancellation closes the
// connection, and whichever of cancellation and completion settles first is
// the one outcome the caller sees.
func (c *Connector) negotiate(ctx context.Context, cfg Config, conn transport.StreamConn, destAddr string) (transport.StreamConn, error) {
	timeout := c.connectTimeout
	if dl, ok := ctx.Deadline(); ok {
		if remaining := time.Until(dl); remaining < timeout {
			timeout = remaining
		}
	}
	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return nil, fmt.Errorf("failed to set handshake deadline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	var (
		tunnel transport.StreamConn
		err    error
	)
	switch cfg.Type() {
	case TypeSOCKS4:
		h := socks4.Handshaker{UserID: cfg.username}
		tunnel, err = h.Negotiate(conn, destAddr)
	case TypeSOCKS5:
		h := socks5.Handshaker{Username: cfg.username, Password: cfg.password}
		tunnel, err = h.Negotiate(conn, destAddr)
	case TypeConnect:
		target := conn
		if cfg.UseTLS() {
			target, err = wrapTLS(conn, cfg.ProxyAddress())
		}
		if err == nil {
			h := httpconnect.Handshaker{
				Headers:  cfg.headers,
				Username: cfg.username,
				Password: cfg.password,
			}
			tunnel, err = h.Negotiate(target, destAddr)
		}
	default:
		err = fmt.Errorf("unsupported proxy type %v", cfg.Type())
	}

	if !stop() {
		// The context fired and closed the connection, possibly racing with
		// handshake completion. Cancellation wins: the tunnel, if any, is
		// unusable anyway.
		return nil, ctx.Err()
	}
	if err != nil {
		if isDeadlineError(err) {
			return nil, &HandshakeTimeoutError{ProxyAddress: cfg.ProxyAddress(), ConnectTimeout: timeout}
		}
		return nil, &ConnectError{ProxyAddress: cfg.ProxyAddress(), Cause: err}
	}
	if err := tunnel.SetDeadline(time.Time{}); err != nil {
		tunnel.Close()
		return nil, fmt.Errorf("failed to clear handshake deadline: %w", err)
	}
	return tunnel, nil
}

func isDeadlineError(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// wrapTLS upgrades the raw proxy connection to TLS for https CONNECT
// proxies.
func wrapTLS(conn transport.StreamConn, proxyAddr string) (transport.StreamConn, error) {
	host, _, err := net.SplitHostPort(proxyAddr)
	if err != nil {
		return nil, err
	}
	return &tlsStreamConn{Conn: tls.Client(conn, &tls.Config{ServerName: host}), raw: conn}, nil
}

type tlsStreamConn struct {
	*tls.Conn
	raw transport.StreamConn
}

func (c *tlsStreamConn) CloseRead() error  { return c.raw.CloseRead() }
func (c *tlsStreamConn) CloseWrite() error { return c.Conn.CloseWrite() }
