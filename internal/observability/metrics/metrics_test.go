package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestIntakeMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewIntakeMetrics(reg)
	m.ObserveEvent("text", "handled")
	m.ObserveEvent("text", "handled")
	m.ObserveTransition("menu", "name")
	m.ObserveComplaint("UPI/Banking")
	m.ObserveOutbound("sent")
	m.ObserveTimeout("media")
	m.ObserveInbound("image", "queued")
	m.ObserveWebhookLatency("inbound", 0.25)

	if got := testutil.ToFloat64(m.eventsTotal.WithLabelValues("text", "handled")); got != 2 {
		t.Fatalf("expected 2 handled events, got %v", got)
	}
	if got := testutil.ToFloat64(m.complaintsTotal.WithLabelValues("UPI/Banking")); got != 1 {
		t.Fatalf("expected 1 complaint, got %v", got)
	}
	if got := testutil.ToFloat64(m.timeoutsTotal.WithLabelValues("media")); got != 1 {
		t.Fatalf("expected 1 media timeout, got %v", got)
	}
}

func TestIntakeMetricsDefaultRegistry(t *testing.T) {
	m := NewIntakeMetrics(nil)
	m.ObserveOutbound("failed")
}

func TestIntakeMetricsNilSafe(t *testing.T) {
	var m *IntakeMetrics
	m.ObserveEvent("text", "handled")
	m.ObserveTransition("menu", "status")
	m.ObserveComplaint("Other")
	m.ObserveOutbound("sent")
	m.ObserveTimeout("outbound")
	m.ObserveInbound("text", "duplicate")
	m.ObserveWebhookLatency("inbound", 0.1)
}

func TestWebhookLatencyHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewIntakeMetrics(reg)
	m.ObserveWebhookLatency("inbound", 0.02)
	m.ObserveWebhookLatency("inbound", 0.4)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var hist *dto.Histogram
	for _, mf := range families {
		if mf.GetType() != dto.MetricType_HISTOGRAM {
			continue
		}
		for _, metric := range mf.GetMetric() {
			hist = metric.GetHistogram()
		}
	}
	if hist == nil {
		t.Fatalf("expected a histogram family")
	}
	if hist.GetSampleCount() != 2 {
		t.Fatalf("expected 2 samples, got %d", hist.GetSampleCount())
	}
	if sum := hist.GetSampleSum(); sum < 0.41 || sum > 0.43 {
		t.Fatalf("unexpected sample sum %v", sum)
	}
}
