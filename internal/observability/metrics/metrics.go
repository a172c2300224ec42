package metrics

import "github.com/prometheus/client_golang/prometheus"

// IntakeMetrics exposes counters/histograms for the complaint intake flow.
type IntakeMetrics struct {
	eventsTotal      *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
	complaintsTotal  *prometheus.CounterVec
	outboundTotal    *prometheus.CounterVec
	timeoutsTotal    *prometheus.CounterVec
	inboundTotal     *prometheus.CounterVec
	webhookLatency   *prometheus.HistogramVec
}

func NewIntakeMetrics(reg prometheus.Registerer) *IntakeMetrics {
	m := &IntakeMetrics{
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cybersathi",
			Subsystem: "intake",
			Name:      "events_total",
			Help:      "Inbound events processed by the intake engine",
		}, []string{"kind", "outcome"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cybersathi",
			Subsystem: "intake",
			Name:      "transitions_total",
			Help:      "Conversation stage transitions",
		}, []string{"from", "to"}),
		complaintsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cybersathi",
			Subsystem: "intake",
			Name:      "complaints_registered_total",
			Help:      "Complaints registered, by fraud category",
		}, []string{"category"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cybersathi",
			Subsystem: "messaging",
			Name:      "outbound_total",
			Help:      "Total outbound WhatsApp sends",
		}, []string{"status"}),
		timeoutsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cybersathi",
			Subsystem: "intake",
			Name:      "collaborator_timeouts_total",
			Help:      "Calls to external collaborators that hit their deadline",
		}, []string{"collaborator"}),
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cybersathi",
			Subsystem: "messaging",
			Name:      "inbound_webhook_total",
			Help:      "Total inbound WhatsApp webhook messages",
		}, []string{"kind", "status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cybersathi",
			Subsystem: "messaging",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of WhatsApp webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.eventsTotal,
		m.transitionsTotal,
		m.complaintsTotal,
		m.outboundTotal,
		m.timeoutsTotal,
		m.inboundTotal,
		m.webhookLatency,
	)
	return m
}

func (m *IntakeMetrics) ObserveEvent(kind, outcome string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *IntakeMetrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(from, to).Inc()
}

func (m *IntakeMetrics) ObserveComplaint(category string) {
	if m == nil {
		return
	}
	m.complaintsTotal.WithLabelValues(category).Inc()
}

func (m *IntakeMetrics) ObserveOutbound(status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(status).Inc()
}

func (m *IntakeMetrics) ObserveTimeout(collaborator string) {
	if m == nil {
		return
	}
	m.timeoutsTotal.WithLabelValues(collaborator).Inc()
}

// ObserveInbound counts webhook messages by kind and whether they were
// queued, deduplicated or dropped.
func (m *IntakeMetrics) ObserveInbound(kind, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(kind, status).Inc()
}

func (m *IntakeMetrics) ObserveWebhookLatency(route string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(route).Observe(seconds)
}
