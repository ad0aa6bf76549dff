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
	"io"
	"net/http"
	"time"

	"github.com/corridor-net/corridor"
)

// RoundTripper is an [http.RoundTripper] decorator that acquires a permit
// from a [Limit] before delegating a request and releases it when the
// response body completes, whether by EOF, read error, or Close. If no
// permit becomes available within the acquire timeout the request fails with
// a [*QueueTimeoutError] wrapped in a [corridor.UnprocessedRequestError]: it
// was never delegated and is safe to retry.
type RoundTripper struct {
	next           http.RoundTripper
	limit          *Limit
	acquireTimeout time.Duration
	exempt         func(*http.Request) bool
}

var _ http.RoundTripper = (*RoundTripper)(nil)

// RoundTripperOption configures a [RoundTripper].
type RoundTripperOption func(*RoundTripper)

// WithAcquireTimeout bounds how long a request may wait for a permit. Zero,
// the default, means the wait is bounded only by the request's own context.
func WithAcquireTimeout(d time.Duration) RoundTripperOption {
	return func(rt *RoundTripper) { rt.acquireTimeout = d }
}

// WithExempt sets a predicate evaluated per request; requests for which it
// returns true bypass the limit entirely, are admitted immediately, and do
// not occupy a counted slot.
func WithExempt(pred func(*http.Request) bool) RoundTripperOption {
	return func(rt *RoundTripper) { rt.exempt = pred }
}

// NewRoundTripper decorates next with admission control through l, which may
// be shared with other decorators to limit them jointly.
func NewRoundTripper(next http.RoundTripper, l *Limit, opts ...RoundTripperOption) *RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	rt := &RoundTripper{next: next, limit: l}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// NewFixedRoundTripper decorates next with a dedicated limit of max
// concurrent requests.
func NewFixedRoundTripper(next http.RoundTripper, max int, opts ...RoundTripperOption) *RoundTripper {
	return NewRoundTripper(next, New(max), opts...)
}

// Limit returns the underlying [Limit], for observation.
func (rt *RoundTripper) Limit() *Limit { return rt.limit }

func (rt *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	permit, err := rt.acquire(req)
	if err != nil {
		return nil, &corridor.UnprocessedRequestError{Cause: err}
	}
	resp, err := rt.next.RoundTrip(req)
	if err != nil {
		permit.Release()
		return nil, err
	}
	resp.Body = &releasingBody{body: resp.Body, permit: permit}
	return resp, nil
}

func (rt *RoundTripper) acquire(req *http.Request) (*Permit, error) {
	if rt.exempt != nil && rt.exempt(req) {
		return rt.limit.Exempt(), nil
	}
	ctx := req.Context()
	if rt.acquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rt.acquireTimeout)
		defer cancel()
	}
	return rt.limit.Acquire(ctx)
}

// releasingBody releases the permit when the response stream terminates.
// Permit.Release is idempotent, so overlapping completion paths (EOF
// followed by Close, or an abort racing a read) release exactly once.
type releasingBody struct {
	body   io.ReadCloser
	permit *Permit
}

func (b *releasingBody) Read(p []byte) (int, error) {
	n, err := b.body.Read(p)
	if err != nil {
		b.permit.Release()
	}
	return n, err
}

func (b *releasingBody) Close() error {
	err := b.body.Close()
	b.permit.Release()
	return err
}
