// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package inject

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the optional observability collaborator of an injection run.
// Its methods are safe on a nil *Metrics and then do nothing, so an Operator
// runs without one.
type Metrics struct {
	batchesInjected *prometheus.CounterVec
	recordsInjected *prometheus.CounterVec
	batchDuration   *prometheus.HistogramVec
}

// NewMetrics registers the injection metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		batchesInjected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "csvinject_batches_injected_total",
			Help: "Batches committed, by injection id and source id.",
		}, []string{"injection", "source"}),
		recordsInjected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "csvinject_records_injected_total",
			Help: "Records committed, by injection id and source id.",
		}, []string{"injection", "source"}),
		batchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "csvinject_batch_duration_seconds",
			Help:    "Wall time of one batch transaction, by injection id.",
			Buckets: prometheus.DefBuckets,
		}, []string{"injection"}),
	}
}

func (m *Metrics) observeBatch(injection, source string, records int) {
	if m == nil {
		return
	}
	m.batchesInjected.WithLabelValues(injection, source).Inc()
	m.recordsInjected.WithLabelValues(injection, source).Add(float64(records))
}

// batchTimer starts timing one batch and returns the stop function.
func (m *Metrics) batchTimer(injection string) func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.batchDuration.WithLabelValues(injection).Observe(time.Since(start).Seconds())
	}
}
