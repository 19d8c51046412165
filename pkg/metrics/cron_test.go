package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	job := "courier_status_poll"
	metrics.ObserveDuration(job, 250*time.Millisecond)
	metrics.IncSuccess(job)
	metrics.IncFailure(job)
	metrics.IncSkipped(job)
	metrics.AddItems(job, 12)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	for _, outcome := range []string{"success", "failure", "skipped"} {
		got, err := fetchCounterValue(mfs, "orderdesk_cron_job_runs_total", map[string]string{"job": job, "outcome": outcome})
		if err != nil {
			t.Fatalf("fetch %s: %v", outcome, err)
		}
		if got != 1 {
			t.Fatalf("expected %s=1, got %f", outcome, got)
		}
	}

	if got, err := fetchCounterValue(mfs, "orderdesk_cron_job_items_total", map[string]string{"job": job}); err != nil {
		t.Fatalf("fetch items: %v", err)
	} else if got != 12 {
		t.Fatalf("expected items=12, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "orderdesk_cron_job_duration_seconds", "job", job); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestIntegrationMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewIntegrationMetrics(reg)
	metrics.Observe("courier", "create_consignment", OutcomeRejected, 40*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	got, err := fetchCounterValue(mfs, "orderdesk_integration_calls_total", map[string]string{
		"provider": "courier", "operation": "create_consignment", "outcome": OutcomeRejected,
	})
	if err != nil {
		t.Fatalf("fetch calls: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected one call, got %f", got)
	}
}

func TestCheckoutMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCheckoutMetrics(reg)
	metrics.Autosave(AutosavePersisted)
	metrics.Autosave(AutosavePersisted)
	metrics.Conversion(ConversionAlreadyConverted)
	metrics.RiskGate(RiskGateBlocked)
	metrics.Transition("pending", "confirmed")
	metrics.Dispatch("ok")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, _ := fetchCounterValue(mfs, "orderdesk_checkout_autosaves_total", map[string]string{"outcome": AutosavePersisted}); got != 2 {
		t.Fatalf("expected two autosaves, got %f", got)
	}
	if got, _ := fetchCounterValue(mfs, "orderdesk_orders_transitions_total", map[string]string{"from": "pending", "to": "confirmed"}); got != 1 {
		t.Fatalf("expected one transition, got %f", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var cron *CronJobMetrics
	cron.IncSuccess("job")
	var checkout *CheckoutMetrics
	checkout.Autosave(AutosaveFailed)
	NewCheckoutMetrics(nil).RiskGate(RiskGateUnknown)
	NewHTTPMetrics(nil).Observe("GET", "/", 200, time.Millisecond)
	var integrations *IntegrationMetrics
	integrations.Observe("fraud", "check", OutcomeOK, time.Millisecond)
}

func TestHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewHTTPMetrics(reg)
	metrics.Observe("POST", "/api/v1/orders", 201, 15*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	got, err := fetchCounterValue(mfs, "orderdesk_http_requests_total", map[string]string{
		"method": "POST", "route": "/api/v1/orders", "status": "201",
	})
	if err != nil || got != 1 {
		t.Fatalf("expected one request, got %f err=%v", got, err)
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	for name, value := range want {
		if !matchesLabel(pairs, name, value) {
			return false
		}
	}
	return true
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
