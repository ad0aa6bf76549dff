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

// Package corridor provides client-side proxy tunnel negotiation and
// connection admission control.
//
// The building blocks compose like layers of a dialer stack:
//
//   - [github.com/corridor-net/corridor/transport] defines the stream
//     connection and dialer abstractions everything else builds on.
//   - [github.com/corridor-net/corridor/proxy] selects a proxy for a
//     destination and negotiates the tunnel (SOCKS4, SOCKS5, HTTP CONNECT,
//     or none).
//   - [github.com/corridor-net/corridor/limit] bounds the number of
//     in-flight requests with FIFO queuing and per-request deadlines.
//   - [github.com/corridor-net/corridor/client] assembles the above into an
//     http.RoundTripper.
//
// This root package holds only the error types shared across those layers.
package corridor
