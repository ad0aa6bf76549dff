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

package socks5

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/corridor-net/corridor/transport"
)

// Handshaker negotiates a SOCKS5 tunnel over an established connection.
// It is a transient, single-use value: create one per connection attempt.
// Empty credentials mean no authentication.
type Handshaker struct {
	Username string
	Password string
}

// Negotiate performs the SOCKS5 exchange for remoteAddr: method selection,
// authentication if credentials are set, and the CONNECT command. The method
// selection, credentials and CONNECT request are sent in a single write:
// only one method is ever offered, so there is nothing to learn from the
// method response before sending the rest, and merging the writes saves a
// round-trip. The responses are still read strictly in order.
//
// The returned error is of type [ReplyCode] if the server replied to the
// CONNECT command with an error, checkable with [errors.Is]. The caller owns
// closing the connection on failure.
func (h *Handshaker) Negotiate(conn transport.StreamConn, remoteAddr string) (transport.StreamConn, error) {
	if len(h.Username) > 255 || len(h.Password) > 255 {
		return nil, errors.New("credentials exceed 255 bytes")
	}

	// Buffer sized for the worst case:
	// 3 (method selection) + 513 (auth sub-negotiation) + 4 + 256 + 2 (connect).
	var buffer [3 + (1 + 1 + 255 + 1 + 255) + (4 + 256 + 2)]byte
	var b []byte

	useAuth := h.Username != ""
	if !useAuth {
		// +----+----------+----------+
		// |VER | NMETHODS | METHODS  |
		// +----+----------+----------+
		b = append(buffer[:0], 5, 1, authMethodNoAuth)
	} else {
		b = append(buffer[:0], 5, 1, authMethodUserPass)
		// Sub-negotiation per RFC 1929:
		// +----+------+----------+------+----------+
		// |VER | ULEN |  UNAME   | PLEN |  PASSWD  |
		// +----+------+----------+------+----------+
		b = append(b, 1, byte(len(h.Username)))
		b = append(b, h.Username...)
		b = append(b, byte(len(h.Password)))
		b = append(b, h.Password...)
	}

	// +----+-----+-------+------+----------+----------+
	// |VER | CMD |  RSV  | ATYP | DST.ADDR | DST.PORT |
	// +----+-----+-------+------+----------+----------+
	b = append(b, 5, 1, 0)
	b, err := appendAddress(b, remoteAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 address: %w", err)
	}
	if _, err := conn.Write(b); err != nil {
		return nil, fmt.Errorf("failed to write SOCKS5 request: %w", err)
	}

	// Method response: VER, METHOD.
	if _, err := io.ReadFull(conn, buffer[:2]); err != nil {
		return nil, fmt.Errorf("failed to read method response: %w", err)
	}
	if buffer[0] != 5 {
		return nil, fmt.Errorf("invalid protocol version %v. Expected 5", buffer[0])
	}
	switch buffer[1] {
	case authMethodNoAuth:
		if useAuth {
			// The server skipped the sub-negotiation we already sent; it will
			// misparse the stream. Bail out.
			return nil, errors.New("server selected no-auth but credentials were offered")
		}
	case authMethodUserPass:
		if !useAuth {
			return nil, errors.New("server requires authentication")
		}
		// Auth response: VER = 1, STATUS = 0 on success.
		if _, err := io.ReadFull(conn, buffer[:2]); err != nil {
			return nil, fmt.Errorf("failed to read authentication response: %w", err)
		}
		if buffer[0] != 1 {
			return nil, fmt.Errorf("invalid authentication version %v. Expected 1", buffer[0])
		}
		if buffer[1] != 0 {
			return nil, fmt.Errorf("authentication failed: status %v", buffer[1])
		}
	default:
		return nil, fmt.Errorf("unsupported SOCKS authentication method %v", buffer[1])
	}

	// Connect response: VER, REP, RSV, ATYP, BND.ADDR, BND.PORT, per
	// https://datatracker.ietf.org/doc/html/rfc1928#section-6.
	if _, err := io.ReadFull(conn, buffer[:4]); err != nil {
		return nil, fmt.Errorf("failed to read connect response: %w", err)
	}
	if buffer[0] != 5 {
		return nil, fmt.Errorf("invalid protocol version %v. Expected 5", buffer[0])
	}
	if buffer[1] != 0 {
		return nil, ReplyCode(buffer[1])
	}

	// The bound address is informational only; any address type is accepted
	// and the value is consumed without interpretation.
	var bndAddrLen int
	switch buffer[3] {
	case addrTypeIPv4:
		bndAddrLen = 4
	case addrTypeIPv6:
		bndAddrLen = 16
	case addrTypeDomainName:
		if _, err := io.ReadFull(conn, buffer[:1]); err != nil {
			return nil, fmt.Errorf("failed to read bound address length: %w", err)
		}
		bndAddrLen = int(buffer[0])
	default:
		return nil, fmt.Errorf("invalid address type %v", buffer[3])
	}
	if _, err := io.ReadFull(conn, buffer[:bndAddrLen+2]); err != nil {
		return nil, fmt.Errorf("failed to read bound address and port: %w", err)
	}
	return conn, nil
}

// StreamDialer is a [transport.StreamDialer] that routes connections through
// a SOCKS5 proxy listening at a fixed endpoint.
type StreamDialer struct {
	proxyEndpoint transport.StreamEndpoint
	username      string
	password      string
}

var _ transport.StreamDialer = (*StreamDialer)(nil)

// NewStreamDialer creates a [StreamDialer] for the SOCKS5 proxy at the given
// endpoint.
func NewStreamDialer(endpoint transport.StreamEndpoint) (*StreamDialer, error) {
	if endpoint == nil {
		return nil, errors.New("argument endpoint must not be nil")
	}
	return &StreamDialer{proxyEndpoint: endpoint}, nil
}

// SetCredentials enables username/password authentication (RFC 1929).
func (d *StreamDialer) SetCredentials(username, password string) error {
	if len(username) == 0 || len(username) > 255 {
		return errors.New("username must be between 1 and 255 bytes")
	}
	if len(password) == 0 || len(password) > 255 {
		return errors.New("password must be between 1 and 255 bytes")
	}
	d.username = username
	d.password = password
	return nil
}

// DialStream implements [transport.StreamDialer] using SOCKS5.
func (d *StreamDialer) DialStream(ctx context.Context, remoteAddr string) (transport.StreamConn, error) {
	proxyConn, err := d.proxyEndpoint.ConnectStream(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not connect to SOCKS5 proxy: %w", err)
	}
	h := Handshaker{Username: d.username, Password: d.password}
	tunnel, err := h.Negotiate(proxyConn, remoteAddr)
	if err != nil {
		proxyConn.Close()
		return nil, err
	}
	return tunnel, nil
}
