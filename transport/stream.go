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

package transport

import (
	"context"
	"io"
	"net"
)

// StreamConn is a net.Conn that allows closing the read and write ends
// independently, supporting half-open state.
type StreamConn interface {
	net.Conn
	// CloseRead closes the read end of the connection. No more reads should
	// happen after this call.
	CloseRead() error
	// CloseWrite closes the write end of the connection. An EOF or FIN signal
	// may be sent to the peer.
	CloseWrite() error
}

// StreamEndpoint can establish stream connections to a fixed destination,
// such as a proxy server you talk to repeatedly.
type StreamEndpoint interface {
	// ConnectStream establishes a connection with the endpoint.
	ConnectStream(ctx context.Context) (StreamConn, error)
}

// StreamDialer establishes stream connections to a destination.
type StreamDialer interface {
	// DialStream connects to `raddr`, which has the form `host:port` where
	// `host` can be a domain name or IP address.
	DialStream(ctx context.Context, raddr string) (StreamConn, error)
}

// FuncStreamDialer is a [StreamDialer] implemented by a function.
type FuncStreamDialer func(ctx context.Context, raddr string) (StreamConn, error)

func (f FuncStreamDialer) DialStream(ctx context.Context, raddr string) (StreamConn, error) {
	return f(ctx, raddr)
}

// FuncStreamEndpoint is a [StreamEndpoint] implemented by a function.
type FuncStreamEndpoint func(ctx context.Context) (StreamConn, error)

func (f FuncStreamEndpoint) ConnectStream(ctx context.Context) (StreamConn, error) {
	return f(ctx)
}

// TCPDialer is a [StreamDialer] that connects over TCP.
type TCPDialer struct {
	// Dialer configures how connections are created.
	Dialer net.Dialer
}

var _ StreamDialer = (*TCPDialer)(nil)

func (d *TCPDialer) DialStream(ctx context.Context, raddr string) (StreamConn, error) {
	conn, err := d.Dialer.DialContext(ctx, "tcp", raddr)
	if err != nil {
		return nil, err
	}
	return conn.(*net.TCPConn), nil
}

// TCPEndpoint is a [StreamEndpoint] that connects to Address via TCP.
type TCPEndpoint struct {
	// Dialer configures how connections are created.
	Dialer net.Dialer
	// Address is the remote address, in `host:port` form.
	Address string
}

var _ StreamEndpoint = (*TCPEndpoint)(nil)

func (e *TCPEndpoint) ConnectStream(ctx context.Context) (StreamConn, error) {
	conn, err := e.Dialer.DialContext(ctx, "tcp", e.Address)
	if err != nil {
		return nil, err
	}
	return conn.(*net.TCPConn), nil
}

type streamConnAdaptor struct {
	StreamConn
	r io.Reader
	w io.Writer
}

func (a *streamConnAdaptor) Read(b []byte) (int, error) {
	return a.r.Read(b)
}

func (a *streamConnAdaptor) WriteTo(w io.Writer) (int64, error) {
	return io.Copy(w, a.r)
}

func (a *streamConnAdaptor) Write(b []byte) (int, error) {
	return a.w.Write(b)
}

func (a *streamConnAdaptor) ReadFrom(r io.Reader) (int64, error) {
	return io.Copy(a.w, r)
}

// WrapConn wraps an existing [StreamConn] with a new reader and writer,
// preserving the original Close, CloseRead and CloseWrite behavior.
func WrapConn(c StreamConn, r io.Reader, w io.Writer) StreamConn {
	conn := c
	// Unwrap nested adaptors to avoid multiple levels of indirection.
	if a, ok := c.(*streamConnAdaptor); ok {
		conn = a.StreamConn
	}
	return &streamConnAdaptor{StreamConn: conn, r: r, w: w}
}
