// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package enumerate

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	scopeLabel = "scope"

	scopeDomain   = "domain"
	scopeFunction = "function"
)

// Metrics counts what discovery runs found and skipped. A nil *Metrics
// counts nothing.
type Metrics struct {
	Functions         prometheus.Counter
	Faults            *prometheus.CounterVec
	TruncatedChains   prometheus.Counter
	SuppressedBridges prometheus.Counter
}

// NewMetrics creates the discovery counters and registers them with reg
// unless reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Functions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pci_discovery_functions_total",
			Help: "number of present functions discovered",
		}),
		Faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pci_discovery_faults_total",
			Help: `number of configuration access faults. 'scope' - what the fault dropped. Available values: 'domain', 'function'`,
		}, []string{scopeLabel}),
		TruncatedChains: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pci_discovery_truncated_chains_total",
			Help: "number of capability chains cut short by a bad or revisited pointer",
		}),
		SuppressedBridges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pci_discovery_suppressed_bridges_total",
			Help: "number of bridges not followed because their secondary bus was already scanned or lies outside the domain",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Functions, m.Faults, m.TruncatedChains, m.SuppressedBridges)
	}
	return m
}

func (m *Metrics) function() {
	if m != nil {
		m.Functions.Inc()
	}
}

func (m *Metrics) fault(scope string) {
	if m != nil {
		m.Faults.WithLabelValues(scope).Inc()
	}
}

func (m *Metrics) truncated() {
	if m != nil {
		m.TruncatedChains.Inc()
	}
}

func (m *Metrics) suppressed() {
	if m != nil {
		m.SuppressedBridges.Inc()
	}
}
