package app

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricConnectionsActive  = "space_connections_active"
	MetricRoomsActive        = "space_rooms_active"
	MetricEventsTotal        = "space_inbound_events_total"
	MetricBroadcastsTotal    = "space_broadcast_frames_total"
	MetricDroppedTotal       = "space_dropped_frames_total"
	MetricKickedTotal        = "space_kicked_sessions_total"
	MetricSignalsRelayed     = "space_signals_relayed_total"
	MetricSignalsDropped     = "space_signals_dropped_total"
	MetricProtocolErrors     = "space_protocol_errors_total"
)

// Metrics contains Prometheus metrics for the synchronization engine.
// All operations are thread-safe. A nil *Metrics is a valid no-op receiver
// so tests can run without a registry.
type Metrics struct {
	connections    prometheus.Gauge
	rooms          prometheus.GaugeFunc
	events         *prometheus.CounterVec
	broadcasts     *prometheus.CounterVec
	dropped        prometheus.Counter
	kicked         prometheus.Counter
	signalsRelayed prometheus.Counter
	signalsDropped prometheus.Counter
	protocolErrors prometheus.Counter
}

// NewMetrics creates all collectors. roomCount is sampled on scrape; pass the
// room factory's live count. The metrics are not registered; call Register.
func NewMetrics(roomCount func() float64) *Metrics {
	return &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricConnectionsActive,
			Help: "Number of live WebSocket sessions",
		}),
		rooms: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: MetricRoomsActive,
			Help: "Number of active rooms",
		}, roomCount),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricEventsTotal,
			Help: "Inbound events by kind",
		}, []string{"event"}),
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricBroadcastsTotal,
			Help: "Broadcast frames fanned out by kind",
		}, []string{"event"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricDroppedTotal,
			Help: "Frames dropped due to subscriber backpressure",
		}),
		kicked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricKickedTotal,
			Help: "Sessions force-closed as chronically unresponsive",
		}),
		signalsRelayed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricSignalsRelayed,
			Help: "Peer signaling payloads forwarded to their addressee",
		}),
		signalsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricSignalsDropped,
			Help: "Peer signaling payloads dropped (addressee absent)",
		}),
		protocolErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricProtocolErrors,
			Help: "Malformed or unrecognized inbound frames",
		}),
	}
}

func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.connections, m.rooms, m.events, m.broadcasts, m.dropped,
		m.kicked, m.signalsRelayed, m.signalsDropped, m.protocolErrors,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) ConnectionClosed() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Metrics) ObserveEvent(event string) {
	if m != nil {
		m.events.WithLabelValues(event).Inc()
	}
}

func (m *Metrics) ObserveBroadcast(event string, sentTo, dropped int) {
	if m != nil {
		m.broadcasts.WithLabelValues(event).Add(float64(sentTo))
		m.dropped.Add(float64(dropped))
	}
}

func (m *Metrics) SessionKicked() {
	if m != nil {
		m.kicked.Inc()
	}
}

func (m *Metrics) SignalRelayed() {
	if m != nil {
		m.signalsRelayed.Inc()
	}
}

func (m *Metrics) SignalDropped() {
	if m != nil {
		m.signalsDropped.Inc()
	}
}

func (m *Metrics) ProtocolError() {
	if m != nil {
		m.protocolErrors.Inc()
	}
}
