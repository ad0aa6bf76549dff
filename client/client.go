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

// Package client assembles the proxy and limit layers into an
// http.RoundTripper: each request first acquires a concurrency permit, then
// dials its connection through the proxy the selector picks.
package client

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/corridor-net/corridor/limit"
	"github.com/corridor-net/corridor/proxy"
)

type config struct {
	connectorOpts []proxy.ConnectorOption
	limiterOpts   []limit.RoundTripperOption
	tlsConfig     *tls.Config
}

// Option configures the transport returned by [NewTransport].
type Option func(*config)

// WithConnectTimeout bounds each proxy tunnel handshake.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *config) {
		c.connectorOpts = append(c.connectorOpts, proxy.WithConnectTimeout(d))
	}
}

// WithAcquireTimeout bounds how long a request may wait for a concurrency
// permit.
func WithAcquireTimeout(d time.Duration) Option {
	return func(c *config) {
		c.limiterOpts = append(c.limiterOpts, limit.WithAcquireTimeout(d))
	}
}

// WithExempt exempts matching requests from the concurrency limit.
func WithExempt(pred func(*http.Request) bool) Option {
	return func(c *config) {
		c.limiterOpts = append(c.limiterOpts, limit.WithExempt(pred))
	}
}

// WithLogger sets the logger for advisory proxy events.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.connectorOpts = append(c.connectorOpts, proxy.WithLogger(l))
	}
}

// WithTLSClientConfig sets the TLS configuration used for the destination
// connection (the protocol spoken through the tunnel, not the proxy hop).
func WithTLSClientConfig(cfg *tls.Config) Option {
	return func(c *config) { c.tlsConfig = cfg }
}

// NewTransport returns an [http.RoundTripper] that dials every connection
// through a [proxy.Connector] driven by selector and, when l is non-nil,
// admits requests through l. A nil selector means all connections are
// direct.
func NewTransport(selector proxy.Selector, l *limit.Limit, opts ...Option) http.RoundTripper {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	connector := proxy.NewConnector(selector, cfg.connectorOpts...)
	tr := &http.Transport{
		DialContext: func(ctx context.Context, _, addr string) (net.Conn, error) {
			return connector.DialStream(ctx, addr)
		},
		TLSClientConfig:   cfg.tlsConfig,
		ForceAttemptHTTP2: true,
	}
	if l == nil {
		return tr
	}
	return limit.NewRoundTripper(tr, l, cfg.limiterOpts...)
}
