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

package corridor

import "errors"

// UnprocessedRequestError reports a failure that happened before any byte of
// the request reached its destination: proxy selection errors, raw connect
// failures, tunnel handshake failures and timeouts, and admission timeouts
// are all delivered wrapped in this type. A request that fails with an
// UnprocessedRequestError was never transmitted and is always safe to retry.
//
// The root cause is reachable through [errors.Is] and [errors.As].
type UnprocessedRequestError struct {
	// Cause is the underlying failure. Never nil.
	Cause error
}

func (e *UnprocessedRequestError) Error() string {
	return "request was not processed: " + e.Cause.Error()
}

func (e *UnprocessedRequestError) Unwrap() error {
	return e.Cause
}

// IsUnprocessed reports whether err indicates that the request never left
// the client and may be retried without risk of duplication.
func IsUnprocessed(err error) bool {
	var ue *UnprocessedRequestError
	return errors.As(err, &ue)
}
