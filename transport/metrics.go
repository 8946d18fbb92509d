package transport

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	connected        prometheus.Gauge
	accepted         prometheus.Counter
	identifyFailures prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "relay",
			Name:      "clients_connected",
			Help:      "Number of admitted clients.",
		}),
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "connections_accepted_total",
			Help:      "Total number of websocket connections accepted.",
		}),
		identifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "identify_failures_total",
			Help:      "Total number of connections closed because their identity did not resolve.",
		}),
	}

	for _, c := range []prometheus.Collector{m.connected, m.accepted, m.identifyFailures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *metrics) accept() {
	if m != nil {
		m.accepted.Inc()
	}
}

func (m *metrics) admit() {
	if m != nil {
		m.connected.Inc()
	}
}

func (m *metrics) release() {
	if m != nil {
		m.connected.Dec()
	}
}

func (m *metrics) identifyFailed() {
	if m != nil {
		m.identifyFailures.Inc()
	}
}
