package observability

import (
	"github.com/NetCenter-Dev/Fetcher/internal/domain"
	"github.com/NetCenter-Dev/Fetcher/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

type Field = ports.Field

const (
	MetricPacketsCreated  = "fetcher_packets_created_total"
	MetricPacketsProblem  = "fetcher_packets_problem_total"
	MetricPacketsSent     = "fetcher_packets_sent_total"
	MetricQueueDropped    = "fetcher_queue_dropped_total"
	MetricTransportErrors = "fetcher_transport_errors_total"
	MetricDLQ             = "fetcher_dlq_total"
	MetricQueueLength     = "fetcher_queue_length"
	MetricSendLatency     = "fetcher_send_latency_seconds"
)

// PromObs implements ports.Observability with zap and Prometheus.
// Unknown metric names are ignored.
type PromObs struct {
	log *zap.Logger

	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewPromObs registers the fetcher metrics on reg. A nil reg uses the
// default registerer; a nil logger discards logs.
func NewPromObs(reg prometheus.Registerer, logger *zap.Logger) *PromObs {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	f := promauto.With(reg)

	created := f.NewCounter(prometheus.CounterOpts{
		Name: MetricPacketsCreated,
		Help: "Packets accepted into the queue.",
	})
	problem := f.NewCounter(prometheus.CounterOpts{
		Name: MetricPacketsProblem,
		Help: "Packets that failed construction and were never queued.",
	})
	sent := f.NewCounter(prometheus.CounterOpts{
		Name: MetricPacketsSent,
		Help: "Frames accepted by the transport.",
	})
	dropped := f.NewCounter(prometheus.CounterOpts{
		Name: MetricQueueDropped,
		Help: "Packets lost due to queue backpressure policies.",
	})
	transportErrs := f.NewCounter(prometheus.CounterOpts{
		Name: MetricTransportErrors,
		Help: "Failed transport sends, retried later.",
	})
	dlq := f.NewCounter(prometheus.CounterOpts{
		Name: MetricDLQ,
		Help: "Packets discarded because they could not be encoded.",
	})
	queueLen := f.NewGauge(prometheus.GaugeOpts{
		Name: MetricQueueLength,
		Help: "Current number of packets in the queue.",
	})
	latency := f.NewHistogram(prometheus.HistogramOpts{
		Name:    MetricSendLatency,
		Help:    "Time from packet creation to transport acceptance.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	return &PromObs{
		log: logger.With(zap.String("mod", "obs")),
		counters: map[string]prometheus.Counter{
			MetricPacketsCreated:  created,
			MetricPacketsProblem:  problem,
			MetricPacketsSent:     sent,
			MetricQueueDropped:    dropped,
			MetricTransportErrors: transportErrs,
			MetricDLQ:             dlq,
		},
		gauges: map[string]prometheus.Gauge{
			MetricQueueLength: queueLen,
		},
		histos: map[string]prometheus.Observer{
			MetricSendLatency: latency,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...Field) {
	p.log.Info(msg, zapFields(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...Field) {
	p.log.Error(msg, append(zapFields(fields), zap.Error(err))...)
}

// LogCritical logs at DPanic, which panics in development loggers only.
func (p *PromObs) LogCritical(msg string, err error, fields ...Field) {
	p.log.DPanic(msg, append(zapFields(fields), zap.Error(err))...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) RecordDLQ(pkt *domain.Packet, err error) {
	p.IncCounter(MetricDLQ, 1)
	fields := []zap.Field{zap.Error(err)}
	if pkt != nil && pkt.Agent != nil {
		fields = append(fields,
			zap.String("agent", pkt.Agent.Name),
			zap.Stringer("class", pkt.Class),
			zap.Uint64("ts_ms", pkt.TimestampMs),
		)
	}
	p.log.Warn("packet dead-lettered", fields...)
}

var _ ports.Observability = (*PromObs)(nil)

// Nop discards everything.
type Nop struct{}

func (Nop) LogInfo(string, ...Field)            {}
func (Nop) LogError(string, error, ...Field)    {}
func (Nop) LogCritical(string, error, ...Field) {}
func (Nop) IncCounter(string, float64)          {}
func (Nop) ObserveLatency(string, float64)      {}
func (Nop) SetGauge(string, float64)            {}
func (Nop) RecordDLQ(*domain.Packet, error)     {}

var _ ports.Observability = Nop{}
