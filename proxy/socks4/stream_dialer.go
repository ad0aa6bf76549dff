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

package socks4

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/corridor-net/corridor/transport"
)

// Handshaker negotiates a SOCKS4 tunnel over an established connection.
// It is a transient, single-use value: create one per connection attempt.
type Handshaker struct {
	// UserID is the optional user id sent with the CONNECT request.
	UserID string
}

// Negotiate sends the CONNECT request for remoteAddr and waits for the
// server reply. On success it returns the connection, now tunneling to
// remoteAddr. On failure the returned error is of type [ReplyCode] if the
// server replied with a non-granted code, checkable with [errors.Is]; the
// caller owns closing the connection.
func (h *Handshaker) Negotiate(conn transport.StreamConn, remoteAddr string) (transport.StreamConn, error) {
	// Request buffer: 8 fixed bytes + user id + NUL + hostname + NUL.
	var buffer [8 + 255 + 1 + 255 + 1]byte
	b, err := appendConnectRequest(buffer[:0], remoteAddr, h.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS4 request: %w", err)
	}
	if _, err := conn.Write(b); err != nil {
		return nil, fmt.Errorf("failed to write SOCKS4 request: %w", err)
	}

	// Reply: VN = 0, CD, DSTPORT, DSTIP. The port and IP fields are
	// meaningless for CONNECT and are read only to consume the frame.
	//	+----+----+---------+-------+
	//	| VN | CD | DSTPORT | DSTIP |
	//	+----+----+---------+-------+
	if _, err := io.ReadFull(conn, buffer[:replyLen]); err != nil {
		return nil, fmt.Errorf("failed to read SOCKS4 reply: %w", err)
	}
	if buffer[0] != replyVersion {
		return nil, fmt.Errorf("invalid SOCKS4 reply version %v. Expected 0", buffer[0])
	}
	if code := ReplyCode(buffer[1]); code != ReplyGranted {
		return nil, code
	}
	return conn, nil
}

// StreamDialer is a [transport.StreamDialer] that routes connections through
// a SOCKS4 proxy listening at a fixed endpoint.
type StreamDialer struct {
	proxyEndpoint transport.StreamEndpoint
	userID        string
}

var _ transport.StreamDialer = (*StreamDialer)(nil)

// NewStreamDialer creates a [StreamDialer] for the SOCKS4 proxy at the given
// endpoint.
func NewStreamDialer(endpoint transport.StreamEndpoint) (*StreamDialer, error) {
	if endpoint == nil {
		return nil, errors.New("argument endpoint must not be nil")
	}
	return &StreamDialer{proxyEndpoint: endpoint}, nil
}

// SetUserID sets the user id sent with every CONNECT request.
func (d *StreamDialer) SetUserID(userID string) error {
	if len(userID) > 255 {
		return errors.New("user id exceeds 255 bytes")
	}
	d.userID = userID
	return nil
}

// DialStream implements [transport.StreamDialer] using SOCKS4.
func (d *StreamDialer) DialStream(ctx context.Context, remoteAddr string) (transport.StreamConn, error) {
	proxyConn, err := d.proxyEndpoint.ConnectStream(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not connect to SOCKS4 proxy: %w", err)
	}
	h := Handshaker{UserID: d.userID}
	tunnel, err := h.Negotiate(proxyConn, remoteAddr)
	if err != nil {
		proxyConn.Close()
		return nil, err
	}
	return tunnel, nil
}
