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

package client

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corridor-net/corridor"
	"github.com/corridor-net/corridor/limit"
	"github.com/corridor-net/corridor/proxy"
)

func TestTransportDirect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "hello from the destination")
	}))
	defer server.Close()

	l := limit.New(2)
	httpClient := &http.Client{Transport: NewTransport(nil, l)}
	resp, err := httpClient.Get(server.URL)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, "hello from the destination", string(body))
	require.Equal(t, 0, l.NumActive(), "the permit must return once the body is consumed")
}

func TestTransportLimitsConcurrency(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		io.WriteString(w, "done")
	}))
	defer server.Close()

	l := limit.New(1)
	httpClient := &http.Client{
		Transport: NewTransport(nil, l, WithAcquireTimeout(50*time.Millisecond)),
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		resp, err := httpClient.Get(server.URL)
		require.NoError(t, err)
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()
	require.Eventually(t, func() bool { return l.NumActive() == 1 },
		time.Second, time.Millisecond)

	_, err := httpClient.Get(server.URL)
	require.Error(t, err)
	require.True(t, corridor.IsUnprocessed(err), "a queued-out request was never sent")

	close(release)
	wg.Wait()
	require.Eventually(t, func() bool { return l.NumActive() == 0 },
		time.Second, time.Millisecond)
}

func TestTransportExemption(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	}))
	defer server.Close()

	l := limit.New(0) // nothing is admitted without an exemption
	httpClient := &http.Client{
		Transport: NewTransport(nil, l,
			WithAcquireTimeout(20*time.Millisecond),
			WithExempt(func(r *http.Request) bool { return r.URL.Path == "/healthz" }),
		),
	}

	_, err := httpClient.Get(server.URL + "/data")
	require.Error(t, err)

	resp, err := httpClient.Get(server.URL + "/healthz")
	require.NoError(t, err)
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func TestTransportWithoutLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "unlimited")
	}))
	defer server.Close()

	httpClient := &http.Client{Transport: NewTransport(nil, nil)}
	resp, err := httpClient.Get(server.URL)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, "unlimited", string(body))
}

func TestTransportFailingSelector(t *testing.T) {
	cfg, err := proxy.ParseURLString("socks5://127.0.0.1:1") // nothing listens here
	require.NoError(t, err)
	httpClient := &http.Client{
		Transport: NewTransport(proxy.NewFixedSelector(cfg), limit.New(1),
			WithConnectTimeout(200*time.Millisecond)),
		Timeout: 5 * time.Second,
	}
	_, err = httpClient.Get("http://dest.example.com/")
	require.Error(t, err)
	require.True(t, corridor.IsUnprocessed(err), "a failed tunnel never carried the request")
}
