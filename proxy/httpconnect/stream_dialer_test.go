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

package httpconnect

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"net/textproto"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corridor-net/corridor/transport"
)

func TestNewStreamDialerNil(t *testing.T) {
	dialer, err := NewStreamDialer(nil)
	require.Nil(t, dialer)
	require.Error(t, err)
}

// runConnectServer accepts one connection, parses the CONNECT head and hands
// it to respond for the rest of the exchange.
func runConnectServer(t *testing.T, listener *net.TCPListener, running *sync.WaitGroup, respond func(conn *net.TCPConn, requestLine string, headers textproto.MIMEHeader)) {
	t.Helper()
	running.Add(1)
	go func() {
		defer running.Done()
		clientConn, err := listener.AcceptTCP()
		require.NoError(t, err, "AcceptTCP failed: %v", err)
		defer clientConn.Close()

		reader := textproto.NewReader(bufio.NewReader(clientConn))
		requestLine, err := reader.ReadLine()
		require.NoError(t, err)
		headers, err := reader.ReadMIMEHeader()
		require.NoError(t, err)
		respond(clientConn, requestLine, headers)
	}()
}

func TestDialStream(t *testing.T) {
	listener, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err, "Failed to create TCP listener: %v", err)
	defer listener.Close()

	var running sync.WaitGroup
	runConnectServer(t, listener, &running, func(conn *net.TCPConn, requestLine string, headers textproto.MIMEHeader) {
		assert.Equal(t, "CONNECT example.com:443 HTTP/1.1", requestLine)
		assert.Equal(t, "example.com:443", headers.Get("Host"))
		_, err := conn.Write([]byte("HTTP/1.1 200 Connection established\r\n\r\n"))
		assert.NoError(t, err)
		io.Copy(conn, conn)
	})

	dialer, err := NewStreamDialer(&transport.TCPEndpoint{Address: listener.Addr().String()})
	require.NoError(t, err)
	conn, err := dialer.DialStream(context.Background(), "example.com:443")
	require.NoError(t, err, "DialStream failed")

	_, err = conn.Write([]byte("Request"))
	require.NoError(t, err)
	require.NoError(t, conn.CloseWrite())
	echoed, err := io.ReadAll(conn)
	require.NoError(t, err)
	require.Equal(t, "Request", string(echoed))
	require.NoError(t, conn.Close())
	running.Wait()
}

func TestDialStreamExtraHeadersAndAuth(t *testing.T) {
	listener, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err, "Failed to create TCP listener: %v", err)
	defer listener.Close()

	var running sync.WaitGroup
	runConnectServer(t, listener, &running, func(conn *net.TCPConn, requestLine string, headers textproto.MIMEHeader) {
		// "alice:open sesame" base64-encoded.
		assert.Equal(t, "Basic YWxpY2U6b3BlbiBzZXNhbWU=", headers.Get("Proxy-Authorization"))
		assert.Equal(t, "corridor-test", headers.Get("User-Agent"))
		_, err := conn.Write([]byte("HTTP/1.1 200 OK\r\n\r\n"))
		assert.NoError(t, err)
	})

	dialer, err := NewStreamDialer(
		&transport.TCPEndpoint{Address: listener.Addr().String()},
		WithBasicAuth("alice", "open sesame"),
		WithHeaders(http.Header{"User-Agent": []string{"corridor-test"}}),
	)
	require.NoError(t, err)
	conn, err := dialer.DialStream(context.Background(), "example.com:443")
	require.NoError(t, err, "DialStream failed")
	conn.Close()
	running.Wait()
}

func TestDialStreamLeftoverBytes(t *testing.T) {
	listener, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err, "Failed to create TCP listener: %v", err)
	defer listener.Close()

	var running sync.WaitGroup
	runConnectServer(t, listener, &running, func(conn *net.TCPConn, requestLine string, headers textproto.MIMEHeader) {
		// The first tunneled bytes ride in the same segment as the response
		// head. A second write follows to prove ordering is preserved across
		// the buffered/unbuffered boundary.
		_, err := conn.Write([]byte("HTTP/1.1 200 OK\r\n\r\nfirst"))
		assert.NoError(t, err)
		_, err = conn.Write([]byte(" second"))
		assert.NoError(t, err)
		assert.NoError(t, conn.CloseWrite())
	})

	dialer, err := NewStreamDialer(&transport.TCPEndpoint{Address: listener.Addr().String()})
	require.NoError(t, err)
	conn, err := dialer.DialStream(context.Background(), "example.com:443")
	require.NoError(t, err, "DialStream failed")
	defer conn.Close()

	data, err := io.ReadAll(conn)
	require.NoError(t, err)
	require.Equal(t, "first second", string(data))
	running.Wait()
}

func TestDialStreamRejected(t *testing.T) {
	listener, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err, "Failed to create TCP listener: %v", err)
	defer listener.Close()

	var running sync.WaitGroup
	runConnectServer(t, listener, &running, func(conn *net.TCPConn, requestLine string, headers textproto.MIMEHeader) {
		_, err := conn.Write([]byte("HTTP/1.1 403 Forbidden\r\nContent-Length: 0\r\n\r\n"))
		assert.NoError(t, err)
	})

	dialer, err := NewStreamDialer(&transport.TCPEndpoint{Address: listener.Addr().String()})
	require.NoError(t, err)
	_, err = dialer.DialStream(context.Background(), "example.com:443")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	running.Wait()
}

func TestDialStreamGarbageResponse(t *testing.T) {
	listener, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err, "Failed to create TCP listener: %v", err)
	defer listener.Close()

	var running sync.WaitGroup
	runConnectServer(t, listener, &running, func(conn *net.TCPConn, requestLine string, headers textproto.MIMEHeader) {
		_, err := conn.Write([]byte("not an HTTP response\r\n\r\n"))
		assert.NoError(t, err)
		assert.NoError(t, conn.CloseWrite())
	})

	dialer, err := NewStreamDialer(&transport.TCPEndpoint{Address: listener.Addr().String()})
	require.NoError(t, err)
	_, err = dialer.DialStream(context.Background(), "example.com:443")
	require.ErrorContains(t, err, "CONNECT response")
	running.Wait()
}
