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

package limit

import (
	"context"

	"github.com/corridor-net/corridor"
	"github.com/corridor-net/corridor/transport"
)

// StreamDialer is a [transport.StreamDialer] decorator that gates connection
// establishment behind a [Limit]: a permit is held for the lifetime of each
// connection and released when it closes. Useful to keep a burst of dials
// (and the handshakes behind them) from overwhelming the network path.
type StreamDialer struct {
	dialer transport.StreamDialer
	limit  *Limit
}

var _ transport.StreamDialer = (*StreamDialer)(nil)

// NewStreamDialer decorates dialer with admission control through l.
func NewStreamDialer(dialer transport.StreamDialer, l *Limit) *StreamDialer {
	return &StreamDialer{dialer: dialer, limit: l}
}

// DialStream implements [transport.StreamDialer]. The context bounds both
// the wait for a permit and the dial itself.
func (d *StreamDialer) DialStream(ctx context.Context, raddr string) (transport.StreamConn, error) {
	permit, err := d.limit.Acquire(ctx)
	if err != nil {
		return nil, &corridor.UnprocessedRequestError{Cause: err}
	}
	conn, err := d.dialer.DialStream(ctx, raddr)
	if err != nil {
		permit.Release()
		return nil, err
	}
	return &permitConn{StreamConn: conn, permit: permit}, nil
}

type permitConn struct {
	transport.StreamConn
	permit *Permit
}

func (c *permitConn) Close() error {
	err := c.StreamConn.Close()
	c.permit.Release()
	return err
}
