// Package raidmetrics wires prometheus/client_golang counters into a
// Client's before_send/after_recv/msg_recv hook
// surface, grounded on the teacher's pkg/metrics/prometheus. Entirely
// optional: a Client that never calls Register behaves exactly as
// spec.md describes, with no observability overhead.
package raidmetrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/glhrmfrts/raid-go/pkg/raid"
)

// Metrics holds the counters registered for one Client.
type Metrics struct {
	sent        prometheus.Counter
	received    prometheus.Counter
	unsolicited prometheus.Counter
	bytesOut    prometheus.Counter
	bytesIn     prometheus.Counter
}

// New creates and registers the metrics against reg (use
// prometheus.DefaultRegisterer for the global registry).
func New(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		sent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "requests_sent_total",
			Help: "Total requests sent on the connection.",
		}),
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "frames_received_total",
			Help: "Total complete frames received on the connection.",
		}),
		unsolicited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "unsolicited_messages_total",
			Help: "Total frames whose etag matched no pending request.",
		}),
		bytesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "bytes_sent_total",
			Help: "Total payload bytes sent, excluding length prefixes.",
		}),
		bytesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "bytes_received_total",
			Help: "Total payload bytes received, excluding length prefixes.",
		}),
	}

	for _, c := range []prometheus.Collector{m.sent, m.received, m.unsolicited, m.bytesOut, m.bytesIn} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Attach registers the metrics' hook functions on client.
func (m *Metrics) Attach(client *raid.Client) {
	client.OnBeforeSend(func(payload []byte) {
		m.sent.Inc()
		m.bytesOut.Add(float64(len(payload)))
	})
	client.OnAfterRecv(func(payload []byte) {
		m.received.Inc()
		m.bytesIn.Add(float64(len(payload)))
	})
	client.OnMsgRecv(func(_ *raid.Reader) {
		m.unsolicited.Inc()
	})
}
