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
	"net/url"

	"golang.org/x/net/http/httpproxy"
)

// FromEnvironment returns a [Selector] driven by the HTTP_PROXY, HTTPS_PROXY
// and NO_PROXY environment variables (and their lowercase forms), with the
// same semantics as the standard library's net/http. The environment is read
// once; changes after the call have no effect.
func FromEnvironment() Selector {
	return FromEnvironmentConfig(httpproxy.FromEnvironment())
}

// FromEnvironmentConfig is [FromEnvironment] for an explicit
// [httpproxy.Config], which is useful in tests.
func FromEnvironmentConfig(cfg *httpproxy.Config) Selector {
	return &envSelector{proxyFor: cfg.ProxyFunc()}
}

type envSelector struct {
	proxyFor func(*url.URL) (*url.URL, error)
}

var _ Selector = (*envSelector)(nil)

func (s *envSelector) SelectProxy(scheme, hostPort string) (Config, error) {
	proxyURL, err := s.proxyFor(destinationURL(scheme, hostPort))
	if err != nil {
		// A malformed proxy environment variable. Surfacing it fails the
		// request before anything is sent.
		return Config{}, err
	}
	return ParseURL(proxyURL)
}

func (s *envSelector) ConnectFailed(scheme, hostPort, proxyAddress string, cause error) {}
