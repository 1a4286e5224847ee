package metrics

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const (
	namespace = "pharmacy"
	subsystem = "webhook"

	eventsMetric = namespace + "_" + subsystem + "_events_total"
)

// WebhookMetrics exposes counters/histograms for the call webhook pipeline.
type WebhookMetrics struct {
	eventsTotal     *prometheus.CounterVec
	downstreamTotal *prometheus.CounterVec
	fieldFills      *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	m := &WebhookMetrics{
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "events_total",
			Help:      "Inbound call webhook events by kind and outcome",
		}, []string{"kind", "status"}),
		downstreamTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "downstream_total",
			Help:      "Persistence and notification attempts by target and outcome",
		}, []string{"target", "status"}),
		fieldFills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "extracted_fields_total",
			Help:      "Record fields filled from transcript text",
		}, []string{"field"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "handle_seconds",
			Help:      "Latency of webhook event handling",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.eventsTotal, m.downstreamTotal, m.fieldFills, m.latency)
	return m
}

func (m *WebhookMetrics) ObserveEvent(kind, status string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(kind, status).Inc()
}

func (m *WebhookMetrics) ObserveDownstream(target, status string) {
	if m == nil {
		return
	}
	m.downstreamTotal.WithLabelValues(target, status).Inc()
}

// ObserveFill counts a field filled by transcript extraction. count lets list
// fields record several labels at once.
func (m *WebhookMetrics) ObserveFill(field string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.fieldFills.WithLabelValues(field).Add(float64(count))
}

func (m *WebhookMetrics) ObserveLatency(kind string, seconds float64) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(kind).Observe(seconds)
}

// EventCount is one kind/status pair from the events counter.
type EventCount struct {
	Kind   string  `json:"kind"`
	Status string  `json:"status"`
	Count  float64 `json:"count"`
}

// SnapshotEvents reads the events counter back out of a gatherer, sorted by
// kind then status. A gather failure yields an empty slice.
func SnapshotEvents(gatherer prometheus.Gatherer) []EventCount {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mfs, err := gatherer.Gather()
	if err != nil {
		return []EventCount{}
	}
	out := []EventCount{}
	for _, mf := range mfs {
		if mf == nil || mf.GetName() != eventsMetric {
			continue
		}
		for _, metric := range mf.GetMetric() {
			out = append(out, EventCount{
				Kind:   labelValue(metric, "kind"),
				Status: labelValue(metric, "status"),
				Count:  metric.GetCounter().GetValue(),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Status < out[j].Status
	})
	return out
}

func labelValue(metric *dto.Metric, name string) string {
	for _, lp := range metric.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
