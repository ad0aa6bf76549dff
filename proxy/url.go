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
	"net"
	"net/url"
	"strings"
)

// ParseURL converts a proxy URL into a [Config]. Supported schemes are
// socks4, socks4a, socks5, socks5h, http and https. A nil URL maps to
// [Direct]. Credentials are taken from the URL's user info. If the URL has
// no port, the scheme's conventional default is used (1080 for SOCKS, 80
// for http, 443 for https).
func ParseURL(u *url.URL) (Config, error) {
	if u == nil {
		return Direct(), nil
	}
	scheme := strings.ToLower(u.Scheme)
	address := u.Host
	if u.Port() == "" {
		address = net.JoinHostPort(u.Hostname(), defaultPort(scheme))
	}
	username := ""
	password := ""
	if u.User != nil {
		username = u.User.Username()
		password, _ = u.User.Password()
	}
	switch scheme {
	case "socks4", "socks4a":
		if username != "" {
			return SOCKS4WithUser(address, username)
		}
		return SOCKS4(address)
	case "socks5", "socks5h":
		if username != "" {
			return SOCKS5WithPassword(address, username, password)
		}
		return SOCKS5(address)
	case "http", "https":
		if username != "" {
			return ConnectWithPassword(address, username, password, scheme == "https")
		}
		return Connect(address, scheme == "https")
	default:
		return Config{}, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
}

// ParseURLString is [ParseURL] for a textual URL. The string "direct" or ""
// maps to [Direct].
func ParseURLString(rawURL string) (Config, error) {
	if rawURL == "" || strings.EqualFold(rawURL, "direct") {
		return Direct(), nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return Config{}, fmt.Errorf("invalid proxy URL %q: %w", rawURL, err)
	}
	return ParseURL(u)
}

func defaultPort(scheme string) string {
	switch scheme {
	case "http":
		return "80"
	case "https":
		return "443"
	default:
		return "1080"
	}
}
