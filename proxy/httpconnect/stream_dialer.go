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

// Package httpconnect establishes tunnels through HTTP proxies using the
// CONNECT method.
package httpconnect

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/corridor-net/corridor/transport"
)

// StatusError reports a non-2xx response to the CONNECT request: the proxy
// refused to open the tunnel.
type StatusError struct {
	// StatusCode is the numeric response code, e.g. 403.
	StatusCode int
	// Status is the full status line text, e.g. "403 Forbidden".
	Status string
}

func (e *StatusError) Error() string {
	return "unexpected proxy response status: " + e.Status
}

// Handshaker negotiates an HTTP CONNECT tunnel over an established
// connection. It is a transient, single-use value: create one per connection
// attempt.
type Handshaker struct {
	// Headers are extra headers appended to the CONNECT request.
	Headers http.Header
	// Username and Password, when set, are sent as a Proxy-Authorization
	// basic auth header.
	Username string
	Password string
}

// Negotiate sends `CONNECT remoteAddr HTTP/1.1` and parses the response
// head. On a 2xx response the tunnel is open and the returned connection
// carries exactly the bytes that follow the response head: the proxy may
// bundle the first tunneled bytes into the same segment as its response, and
// those bytes are delivered as the first read of the returned connection,
// none dropped and none duplicated. Anything after the head belongs to the
// tunnel, so an upper-layer protocol upgrade refused by the destination
// arrives over the open tunnel rather than failing the connect.
//
// A non-2xx response yields a [*StatusError]; the caller owns closing the
// connection on failure.
func (h *Handshaker) Negotiate(conn transport.StreamConn, remoteAddr string) (transport.StreamConn, error) {
	var req bytes.Buffer
	fmt.Fprintf(&req, "CONNECT %s HTTP/1.1\r\nHost: %s\r\n", remoteAddr, remoteAddr)
	if h.Username != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(h.Username + ":" + h.Password))
		fmt.Fprintf(&req, "Proxy-Authorization: Basic %s\r\n", credentials)
	}
	if len(h.Headers) > 0 {
		if err := h.Headers.Write(&req); err != nil {
			return nil, fmt.Errorf("failed to serialize CONNECT headers: %w", err)
		}
	}
	req.WriteString("\r\n")
	if _, err := conn.Write(req.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to write CONNECT request: %w", err)
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, &http.Request{Method: http.MethodConnect})
	if err != nil {
		return nil, fmt.Errorf("failed to read CONNECT response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	// A successful CONNECT response has no body, so everything still
	// buffered in br was sent by the destination through the tunnel. The
	// bufio.Reader is discarded afterwards; the copied leftover is the only
	// path those bytes can take.
	if n := br.Buffered(); n > 0 {
		peeked, err := br.Peek(n)
		if err != nil {
			return nil, fmt.Errorf("failed to drain buffered tunnel bytes: %w", err)
		}
		leftover := bytes.Clone(peeked)
		return transport.WrapConn(conn, io.MultiReader(bytes.NewReader(leftover), conn), conn), nil
	}
	return conn, nil
}

// StreamDialer is a [transport.StreamDialer] that routes connections through
// an HTTP CONNECT proxy listening at a fixed endpoint.
type StreamDialer struct {
	proxyEndpoint transport.StreamEndpoint
	handshaker    Handshaker
}

var _ transport.StreamDialer = (*StreamDialer)(nil)

// DialerOption configures a [StreamDialer].
type DialerOption func(*StreamDialer)

// WithHeaders appends the given headers to every CONNECT request. The
// headers are copied.
func WithHeaders(headers http.Header) DialerOption {
	return func(d *StreamDialer) { d.handshaker.Headers = headers.Clone() }
}

// WithBasicAuth authenticates to the proxy with a Proxy-Authorization basic
// auth header.
func WithBasicAuth(username, password string) DialerOption {
	return func(d *StreamDialer) {
		d.handshaker.Username = username
		d.handshaker.Password = password
	}
}

// NewStreamDialer creates a [StreamDialer] for the HTTP proxy at the given
// endpoint.
func NewStreamDialer(endpoint transport.StreamEndpoint, opts ...DialerOption) (*StreamDialer, error) {
	if endpoint == nil {
		return nil, errors.New("argument endpoint must not be nil")
	}
	d := &StreamDialer{proxyEndpoint: endpoint}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// DialStream implements [transport.StreamDialer] using HTTP CONNECT.
func (d *StreamDialer) DialStream(ctx context.Context, remoteAddr string) (transport.StreamConn, error) {
	proxyConn, err := d.proxyEndpoint.ConnectStream(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not connect to HTTP proxy: %w", err)
	}
	tunnel, err := d.handshaker.Negotiate(proxyConn, remoteAddr)
	if err != nil {
		proxyConn.Close()
		return nil, err
	}
	return tunnel, nil
}
