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
	"fmt"
	"time"
)

// ConnectError reports that a connection to the proxy was established but
// the tunnel handshake failed: the proxy rejected the request or spoke an
// unexpected protocol. Raw transport failures (the proxy was never reached)
// are not wrapped in this type.
type ConnectError struct {
	// ProxyAddress is the `host:port` of the proxy that was attempted.
	ProxyAddress string
	// Cause is the handshake failure, such as a socks4.ReplyCode,
	// socks5.ReplyCode or httpconnect.StatusError.
	Cause error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("proxy connect to %s failed: %v", e.ProxyAddress, e.Cause)
}

func (e *ConnectError) Unwrap() error { return e.Cause }

// HandshakeTimeoutError reports that the proxy did not complete the tunnel
// handshake within the configured connect timeout. It is distinct from
// admission-control timeouts so that callers can tell network-level delay
// from queueing delay.
type HandshakeTimeoutError struct {
	// ProxyAddress is the `host:port` of the proxy that was attempted.
	ProxyAddress string
	// ConnectTimeout is the configured connect timeout.
	ConnectTimeout time.Duration
}

func (e *HandshakeTimeoutError) Error() string {
	return fmt.Sprintf("proxy %s did not complete the handshake within %v", e.ProxyAddress, e.ConnectTimeout)
}

// Timeout implements the net.Error convention.
func (e *HandshakeTimeoutError) Timeout() bool { return true }
