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
	"net"
	"net/url"
)

// LegacySelector mirrors environment-provided proxy selectors that return an
// ordered list of candidate proxy URLs for a destination URI, such as a
// system proxy-auto-config surface. Entries may be nil and the list itself
// may be nil or empty, both meaning "no proxy".
type LegacySelector interface {
	// Select returns candidate proxy URLs for the destination, in preference
	// order.
	Select(u *url.URL) []*url.URL
	// ConnectFailed notifies the selector that connecting through
	// proxyAddress failed for the destination.
	ConnectFailed(u *url.URL, proxyAddress string, cause error)
}

// WrapLegacy adapts a [LegacySelector] to the normalized [Selector]
// contract. The candidates are tried in order and the first one with a
// supported scheme wins; nil entries, unparsable URLs and unsupported
// schemes are skipped. Unresolved proxy hosts are normalized by best-effort
// DNS resolution. If no candidate is usable the result is [Direct].
// ConnectFailed is forwarded only for the candidate that was actually
// attempted.
func WrapLegacy(s LegacySelector) Selector {
	return &legacyAdapter{legacy: s}
}

type legacyAdapter struct {
	legacy LegacySelector
}

var _ Selector = (*legacyAdapter)(nil)

func (a *legacyAdapter) SelectProxy(scheme, hostPort string) (Config, error) {
	for _, candidate := range a.legacy.Select(destinationURL(scheme, hostPort)) {
		if candidate == nil {
			continue
		}
		cfg, err := ParseURL(candidate)
		if err != nil || cfg.Type() == TypeDirect {
			continue
		}
		cfg.address = resolveAddress(cfg.address)
		return cfg, nil
	}
	return Direct(), nil
}

func (a *legacyAdapter) ConnectFailed(scheme, hostPort, proxyAddress string, cause error) {
	a.legacy.ConnectFailed(destinationURL(scheme, hostPort), proxyAddress, cause)
}

func destinationURL(scheme, hostPort string) *url.URL {
	if scheme == "" {
		scheme = "https"
	}
	return &url.URL{Scheme: scheme, Host: hostPort}
}

// resolveAddress replaces a domain-name host with its first resolved IP
// address. Resolution failures leave the address untouched: the dialer will
// resolve it again, or fail with a proper transport error.
func resolveAddress(address string) string {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return address
	}
	if net.ParseIP(host) != nil {
		return address
	}
	ips, err := net.LookupHost(host)
	if err != nil || len(ips) == 0 {
		return address
	}
	return net.JoinHostPort(ips[0], port)
}
