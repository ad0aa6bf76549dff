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

// Selector decides which proxy, if any, a connection to a destination should
// go through. Implementations may be shared across many [Connector] instances
// and requests, and must be safe for concurrent use.
type Selector interface {
	// SelectProxy returns the proxy configuration for the destination
	// `host:port` address. The scheme is the application protocol the caller
	// intends to speak ("http", "https", ...) and may be empty. SelectProxy
	// must not block; absence of a proxy is represented by [Direct], never by
	// an error. An error fails the connection attempt before anything is
	// dialed.
	SelectProxy(scheme, hostPort string) (Config, error)

	// ConnectFailed notifies the selector that connecting through the proxy
	// it returned failed. It is advisory only: it exists for observability
	// and policy feedback, and a panic inside it is swallowed by the caller.
	ConnectFailed(scheme, hostPort, proxyAddress string, cause error)
}

// FixedSelector is a [Selector] that returns the same configuration for
// every destination.
type FixedSelector struct {
	cfg Config
}

var _ Selector = (*FixedSelector)(nil)

// NewFixedSelector returns a Selector that always selects cfg.
func NewFixedSelector(cfg Config) *FixedSelector {
	return &FixedSelector{cfg: cfg}
}

func (s *FixedSelector) SelectProxy(scheme, hostPort string) (Config, error) {
	return s.cfg, nil
}

func (s *FixedSelector) ConnectFailed(scheme, hostPort, proxyAddress string, cause error) {}
