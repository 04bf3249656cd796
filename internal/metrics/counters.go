package metrics

import "github.com/prometheus/client_golang/prometheus"

// PushCounters counts live channel traffic. It implements push.Recorder.
type PushCounters struct {
	received   *prometheus.CounterVec
	dropped    *prometheus.CounterVec
	reconnects prometheus.Counter
}

func NewPushCounters() *PushCounters {
	return &PushCounters{
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camdash_push_messages_total",
			Help: "Live channel messages applied, by type.",
		}, []string{"type"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camdash_push_dropped_total",
			Help: "Live channel messages dropped, by reason.",
		}, []string{"reason"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "camdash_push_reconnects_total",
			Help: "Reconnection attempts of the live channel.",
		}),
	}
}

func (p *PushCounters) Received(msgType string) { p.received.WithLabelValues(msgType).Inc() }
func (p *PushCounters) Dropped(reason string)   { p.dropped.WithLabelValues(reason).Inc() }
func (p *PushCounters) Reconnect()              { p.reconnects.Inc() }

// Register adds the counters to reg.
func (p *PushCounters) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{p.received, p.dropped, p.reconnects} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
