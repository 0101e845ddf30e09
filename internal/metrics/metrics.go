// Package metrics defines the Prometheus collectors exported on /metrics.
// A nil *Metrics is valid and records nothing.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "audioid"

type Metrics struct {
	LinesTotal          prometheus.Counter
	MalformedLinesTotal prometheus.Counter
	EventsTotal         *prometheus.CounterVec
	MessagesDelivered   prometheus.Counter
	Subscribers         prometheus.Gauge
	HistoryLength       prometheus.Gauge
	JournalDroppedTotal prometheus.Counter
	NotificationsTotal  *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LinesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analyzer",
			Name:      "lines_total",
			Help:      "Lines read from the analyzer process.",
		}),
		MalformedLinesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analyzer",
			Name:      "malformed_lines_total",
			Help:      "Lines whose time or duration did not parse.",
		}),
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "events_total",
			Help:      "Coalesced events by outcome (new or update).",
		}, []string{"kind"}),
		MessagesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "messages_delivered_total",
			Help:      "Messages accepted by subscriber send queues.",
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "subscribers",
			Help:      "Currently connected WebSocket subscribers.",
		}),
		HistoryLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "length",
			Help:      "Entries in the recent-history window.",
		}),
		JournalDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "dropped_total",
			Help:      "Journal records dropped because the writer queue was full.",
		}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "sent_total",
			Help:      "Notification deliveries by channel and result.",
		}, []string{"channel", "result"}),
	}

	reg.MustRegister(
		m.LinesTotal,
		m.MalformedLinesTotal,
		m.EventsTotal,
		m.MessagesDelivered,
		m.Subscribers,
		m.HistoryLength,
		m.JournalDroppedTotal,
		m.NotificationsTotal,
	)
	return m
}

func (m *Metrics) ObserveLine(malformed bool) {
	if m == nil {
		return
	}
	m.LinesTotal.Inc()
	if malformed {
		m.MalformedLinesTotal.Inc()
	}
}

func (m *Metrics) ObserveMessage(kind string, delivered, historyLen int) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(kind).Inc()
	m.MessagesDelivered.Add(float64(delivered))
	m.HistoryLength.Set(float64(historyLen))
}

func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.Subscribers.Set(float64(n))
}

func (m *Metrics) JournalDropped() {
	if m == nil {
		return
	}
	m.JournalDroppedTotal.Inc()
}

func (m *Metrics) Notification(channel string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.NotificationsTotal.WithLabelValues(channel, result).Inc()
}
