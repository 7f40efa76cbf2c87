// Package metrics exposes Connection's and channel's counters as
// Prometheus collectors. Grounded on the metrics surface in
// runZeroInc-sockstats/pkg/exporter/exporter.go: a small set of
// prometheus.CounterVec/GaugeVec instruments registered against a
// caller-supplied registry, rather than that package's custom
// pull-collector (there is no per-connection TCP_INFO syscall to poll
// here — this protocol's counters are pushed from the code paths that
// already know about the event).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recorder is the instrumentation seam conn calls into. Label
// values are the channel id formatted as a small integer string and a
// free-form disconnect reason, matching the low-cardinality label
// guidance Prometheus client libraries document.
type Recorder interface {
	PacketSent(channel string)
	PacketReceived(channel string)
	Retransmit(channel string)
	MessageDelivered(channel string, bytes int)
	FrameDropped(channel string)
	ConnectionOpened()
	ConnectionClosed(reason string)
	HandshakeCompleted()
}

type prometheusRecorder struct {
	packetsSent     *prometheus.CounterVec
	packetsReceived *prometheus.CounterVec
	retransmits     *prometheus.CounterVec
	messageBytes    *prometheus.CounterVec
	framesDropped   *prometheus.CounterVec
	connectionsOpen prometheus.Gauge
	connectionsTotal *prometheus.CounterVec
	handshakes      prometheus.Counter
}

// New registers the cubyznet instrument set against reg and returns a
// Recorder backed by it. Passing a fresh *prometheus.Registry rather than
// prometheus.DefaultRegisterer lets cmd/democlient and tests avoid
// colliding on repeated registration.
func New(reg prometheus.Registerer) Recorder {
	r := &prometheusRecorder{
		packetsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cubyznet",
			Name:      "packets_sent_total",
			Help:      "Sequenced datagrams sent, by channel.",
		}, []string{"channel"}),
		packetsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cubyznet",
			Name:      "packets_received_total",
			Help:      "Sequenced datagrams received, by channel.",
		}, []string{"channel"}),
		retransmits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cubyznet",
			Name:      "retransmits_total",
			Help:      "Packets resent after their resend timeout elapsed, by channel.",
		}, []string{"channel"}),
		messageBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cubyznet",
			Name:      "message_bytes_delivered_total",
			Help:      "Application frame bytes handed to the event sink, by channel.",
		}, []string{"channel"}),
		framesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cubyznet",
			Name:      "frames_dropped_total",
			Help:      "Outbound frames discarded for exceeding the MTU budget, by channel.",
		}, []string{"channel"}),
		connectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cubyznet",
			Name:      "connections_open",
			Help:      "Connections currently past handshake and not yet closed.",
		}),
		connectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cubyznet",
			Name:      "connections_closed_total",
			Help:      "Connections closed, by reason.",
		}, []string{"reason"}),
		handshakes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cubyznet",
			Name:      "handshakes_completed_total",
			Help:      "INIT handshakes that reached the Connected state.",
		}),
	}
	reg.MustRegister(
		r.packetsSent, r.packetsReceived, r.retransmits, r.messageBytes,
		r.framesDropped, r.connectionsOpen, r.connectionsTotal, r.handshakes,
	)
	return r
}

func (r *prometheusRecorder) PacketSent(channel string)     { r.packetsSent.WithLabelValues(channel).Inc() }
func (r *prometheusRecorder) PacketReceived(channel string) { r.packetsReceived.WithLabelValues(channel).Inc() }
func (r *prometheusRecorder) Retransmit(channel string)     { r.retransmits.WithLabelValues(channel).Inc() }
func (r *prometheusRecorder) MessageDelivered(channel string, bytes int) {
	r.messageBytes.WithLabelValues(channel).Add(float64(bytes))
}
func (r *prometheusRecorder) FrameDropped(channel string) { r.framesDropped.WithLabelValues(channel).Inc() }
func (r *prometheusRecorder) ConnectionOpened()            { r.connectionsOpen.Inc() }
func (r *prometheusRecorder) ConnectionClosed(reason string) {
	r.connectionsOpen.Dec()
	r.connectionsTotal.WithLabelValues(reason).Inc()
}
func (r *prometheusRecorder) HandshakeCompleted() { r.handshakes.Inc() }

// Noop is a Recorder that discards every observation, used by tests and
// by callers that do not want a Prometheus dependency wired in.
var Noop Recorder = noopRecorder{}

type noopRecorder struct{}

func (noopRecorder) PacketSent(string)            {}
func (noopRecorder) PacketReceived(string)        {}
func (noopRecorder) Retransmit(string)             {}
func (noopRecorder) MessageDelivered(string, int)  {}
func (noopRecorder) FrameDropped(string)           {}
func (noopRecorder) ConnectionOpened()             {}
func (noopRecorder) ConnectionClosed(string)       {}
func (noopRecorder) HandshakeCompleted()           {}
