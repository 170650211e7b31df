// Copyright (c) 2019 Cisco and/or its affiliates.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at:
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ila

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// path where the metrics are exposed
	prometheusMetricsPath = "/metrics/ila"

	opLabel     = "op"
	resultLabel = "result"

	opCreate    = "create"
	opRemove    = "remove"
	opLookup    = "lookup"
	opTestWrite = "test-write"

	resultCreated = "created"
	resultSkipped = "skipped"
	resultOK      = "ok"
	resultFailed  = "failed"
)

// Metrics counts mapping operations. Failed removals are identifiers
// possibly left behind in the DB.
type Metrics struct {
	operations *prometheus.CounterVec
	backendUp  prometheus.Gauge
}

// NewMetrics creates unregistered metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ila",
			Name:      "mapping_operations_total",
			Help:      "Number of identifier mapping operations by operation and result",
		}, []string{opLabel, resultLabel}),
		backendUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ila",
			Name:      "identdb_up",
			Help:      "1 if the identifier DB connection is started, 0 otherwise",
		}),
	}
}

// Collectors returns all collectors to register.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.operations, m.backendUp}
}

func (m *Metrics) observe(op, result string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, result).Inc()
}

func (m *Metrics) setBackendUp(up bool) {
	if m == nil {
		return
	}
	if up {
		m.backendUp.Set(1)
	} else {
		m.backendUp.Set(0)
	}
}
