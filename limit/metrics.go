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

import "github.com/prometheus/client_golang/prometheus"

// Collector exposes a [Limit]'s counters as Prometheus gauges:
// `<namespace>_active_requests` and `<namespace>_pending_acquisitions`.
// Register it with a prometheus.Registerer to monitor shared admission
// control across all clients using the Limit.
type Collector struct {
	limit   *Limit
	active  *prometheus.Desc
	pending *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a Collector for l under the given metric namespace.
func NewCollector(l *Limit, namespace string) *Collector {
	return &Collector{
		limit: l,
		active: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "active_requests"),
			"Number of concurrency permits currently held.",
			nil, nil,
		),
		pending: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "pending_acquisitions"),
			"Number of acquisitions waiting in the admission queue.",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.active
	ch <- c.pending
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(c.limit.NumActive()))
	ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(c.limit.NumPending()))
}
