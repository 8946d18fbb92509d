package client

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is shared by every client of a registry. A nil *Metrics records
// nothing.
type Metrics struct {
	commands      *prometheus.CounterVec
	dispatched    *prometheus.CounterVec
	dropped       *prometheus.CounterVec
	subscriptions prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "commands_total",
			Help:      "Total number of commands sent, by outcome.",
		}, []string{"result"}),
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "dispatched_total",
			Help:      "Total number of inbound messages matched to a handler.",
		}, []string{"kind"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "dropped_total",
			Help:      "Total number of inbound messages dropped.",
		}, []string{"reason"}),
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "relay",
			Name:      "subscriptions",
			Help:      "Number of active event subscriptions across all clients.",
		}),
	}

	collectors := []prometheus.Collector{m.commands, m.dispatched, m.dropped, m.subscriptions}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) command(result string) {
	if m == nil {
		return
	}

	m.commands.WithLabelValues(result).Inc()
}

func (m *Metrics) dispatch(kind KeyKind) {
	if m == nil {
		return
	}

	m.dispatched.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) drop(reason string) {
	if m == nil {
		return
	}

	m.dropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) subscribed(delta float64) {
	if m == nil {
		return
	}

	m.subscriptions.Add(delta)
}
