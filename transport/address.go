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
	"fmt"
	"net"
	"strconv"
	"strings"
)

type domainAddr struct {
	network string
	address string
}

func (a *domainAddr) Network() string { return a.network }
func (a *domainAddr) String() string  { return a.address }

// MakeNetAddr returns a [net.Addr] for the given network ("tcp" or "udp")
// and address in `host:port` form. IP hosts produce a *net.TCPAddr or
// *net.UDPAddr; domain names produce an opaque address with the host
// lowercased. The port may be a number or a service name.
func MakeNetAddr(network, address string) (net.Addr, error) {
	host, portText, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}
	port, err := net.LookupPort(network, portText)
	if err != nil {
		return nil, fmt.Errorf("could not resolve port %q: %w", portText, err)
	}
	if ip := net.ParseIP(host); ip != nil {
		switch network {
		case "tcp":
			return &net.TCPAddr{IP: ip, Port: port}, nil
		case "udp":
			return &net.UDPAddr{IP: ip, Port: port}, nil
		default:
			return nil, fmt.Errorf("network %q not supported for IP addresses", network)
		}
	}
	normalized := net.JoinHostPort(strings.ToLower(host), strconv.Itoa(port))
	return &domainAddr{network: network, address: normalized}, nil
}
