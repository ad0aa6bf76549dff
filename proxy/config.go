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
	"net/http"

	"github.com/corridor-net/corridor/transport"
)

// Type identifies the tunnel protocol spoken with a proxy server. The set of
// proxy protocols is closed: a [Connector] dispatches over these four values
// exhaustively.
type Type int

const (
	// TypeDirect means no proxy: connections go straight to the destination.
	TypeDirect Type = iota
	// TypeSOCKS4 is the SOCKS4/SOCKS4a protocol.
	TypeSOCKS4
	// TypeSOCKS5 is the SOCKS5 protocol (RFC 1928).
	TypeSOCKS5
	// TypeConnect is an HTTP proxy speaking the CONNECT method.
	TypeConnect
)

func (t Type) String() string {
	switch t {
	case TypeDirect:
		return "direct"
	case TypeSOCKS4:
		return "socks4"
	case TypeSOCKS5:
		return "socks5"
	case TypeConnect:
		return "connect"
	default:
		return fmt.Sprintf("proxy.Type(%d)", int(t))
	}
}

// Config is an immutable description of how to reach one proxy server, or of
// the absence of a proxy. Construct values with [Direct], [SOCKS4], [SOCKS5],
// [Connect] and their credential variants; the zero value is equivalent to
// [Direct].
type Config struct {
	kind     Type
	address  string
	username string
	password string
	useTLS   bool
	headers  http.Header
}

// Direct returns the Config that signifies a proxy is absent.
func Direct() Config {
	return Config{kind: TypeDirect}
}

// SOCKS4 returns a Config for a SOCKS4 proxy at the given `host:port`
// address.
func SOCKS4(address string) (Config, error) {
	address, err := normalizeAddress(address)
	if err != nil {
		return Config{}, err
	}
	return Config{kind: TypeSOCKS4, address: address}, nil
}

// SOCKS4WithUser returns a Config for a SOCKS4 proxy that sends the given
// user id with the connect request.
func SOCKS4WithUser(address, userID string) (Config, error) {
	cfg, err := SOCKS4(address)
	if err != nil {
		return Config{}, err
	}
	cfg.username = userID
	return cfg, nil
}

// SOCKS5 returns a Config for a SOCKS5 proxy at the given `host:port`
// address, using no authentication.
func SOCKS5(address string) (Config, error) {
	address, err := normalizeAddress(address)
	if err != nil {
		return Config{}, err
	}
	return Config{kind: TypeSOCKS5, address: address}, nil
}

// SOCKS5WithPassword returns a Config for a SOCKS5 proxy using
// username/password authentication (RFC 1929).
func SOCKS5WithPassword(address, username, password string) (Config, error) {
	cfg, err := SOCKS5(address)
	if err != nil {
		return Config{}, err
	}
	if username == "" {
		return Config{}, fmt.Errorf("username must not be empty")
	}
	cfg.username = username
	cfg.password = password
	return cfg, nil
}

// Connect returns a Config for an HTTP proxy speaking the CONNECT method.
// If useTLS is true, the connection to the proxy itself is made over TLS.
func Connect(address string, useTLS bool) (Config, error) {
	address, err := normalizeAddress(address)
	if err != nil {
		return Config{}, err
	}
	return Config{kind: TypeConnect, address: address, useTLS: useTLS}, nil
}

// ConnectWithHeaders is like [Connect] but sends the given extra headers
// with the CONNECT request. The headers are copied.
func ConnectWithHeaders(address string, headers http.Header, useTLS bool) (Config, error) {
	cfg, err := Connect(address, useTLS)
	if err != nil {
		return Config{}, err
	}
	cfg.headers = headers.Clone()
	return cfg, nil
}

// ConnectWithPassword is like [Connect] but authenticates to the proxy with
// a Proxy-Authorization basic auth header.
func ConnectWithPassword(address, username, password string, useTLS bool) (Config, error) {
	cfg, err := Connect(address, useTLS)
	if err != nil {
		return Config{}, err
	}
	if username == "" {
		return Config{}, fmt.Errorf("username must not be empty")
	}
	cfg.username = username
	cfg.password = password
	return cfg, nil
}

// normalizeAddress validates a proxy address and puts it in canonical form:
// domain names lowercased, service-name ports resolved to numbers.
func normalizeAddress(address string) (string, error) {
	netAddr, err := transport.MakeNetAddr("tcp", address)
	if err != nil {
		return "", fmt.Errorf("invalid proxy address %q: %w", address, err)
	}
	return netAddr.String(), nil
}

// Type returns the tunnel protocol of this configuration.
func (c Config) Type() Type { return c.kind }

// ProxyAddress returns the proxy `host:port` address. It is empty only for
// [TypeDirect].
func (c Config) ProxyAddress() string { return c.address }

// Username returns the configured username, or the SOCKS4 user id. Empty if
// no credentials were configured.
func (c Config) Username() string { return c.username }

// UseTLS reports whether the connection to a CONNECT proxy is made over TLS.
func (c Config) UseTLS() bool { return c.useTLS }

// Headers returns a copy of the extra CONNECT request headers, or nil.
func (c Config) Headers() http.Header { return c.headers.Clone() }

// String describes the configuration with any password masked.
func (c Config) String() string {
	switch c.kind {
	case TypeDirect:
		return "direct"
	case TypeConnect:
		scheme := "http"
		if c.useTLS {
			scheme = "https"
		}
		if c.username != "" {
			return fmt.Sprintf("connect(%s://%s:****@%s)", scheme, c.username, c.address)
		}
		return fmt.Sprintf("connect(%s://%s)", scheme, c.address)
	default:
		if c.username != "" {
			mask := ""
			if c.password != "" {
				mask = ":****"
			}
			return fmt.Sprintf("%s(%s%s@%s)", c.kind, c.username, mask, c.address)
		}
		return fmt.Sprintf("%s(%s)", c.kind, c.address)
	}
}
