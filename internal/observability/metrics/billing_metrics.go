package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config carries the constant labels attached to every series and the
// metric export targets.
type Config struct {
	ServiceName    string
	Environment    string
	PushgatewayURL string

	OTLPEnabled      bool
	ExporterEndpoint string
	ExporterProtocol string
}

const (
	BatchStatusOK    = "ok"
	BatchStatusError = "error"
)

// BillingMetrics captures charge outcomes and run latency for the billing engine.
type BillingMetrics struct {
	chargeOutcomes *prometheus.CounterVec
	chargeAttempts prometheus.Counter
	transitions    *prometheus.CounterVec
	permanentFails *prometheus.CounterVec
	batchDuration  *prometheus.HistogramVec
	runDuration    prometheus.Histogram
	runsSkipped    prometheus.Counter
}

var (
	billingMetricsOnce sync.Once
	billingMetrics     *BillingMetrics
)

// Billing returns the singleton billing metrics registry.
func Billing() *BillingMetrics {
	return BillingWithConfig(Config{})
}

// BillingWithConfig returns the singleton billing metrics registry using config labels.
func BillingWithConfig(cfg Config) *BillingMetrics {
	billingMetricsOnce.Do(func() {
		billingMetrics = newBillingMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return billingMetrics
}

// ResetBillingMetricsForTest resets the billing metrics singleton for tests.
func ResetBillingMetricsForTest() {
	billingMetricsOnce = sync.Once{}
	billingMetrics = nil
}

func newBillingMetrics(registerer prometheus.Registerer, cfg Config) *BillingMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	constLabels := prometheus.Labels{
		"service": labelOrDefault(cfg.ServiceName, "autobill"),
		"env":     labelOrDefault(cfg.Environment, "unknown"),
	}

	chargeOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "autobill_charge_outcomes_total",
		Help:        "Classified results of completed charge attempt loops.",
		ConstLabels: constLabels,
	}, []string{"outcome"})
	chargeAttempts := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "autobill_charge_attempts_total",
		Help:        "Calls made to the payment provider, retries included.",
		ConstLabels: constLabels,
	})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "autobill_invoice_transitions_total",
		Help:        "Invoice status transitions written by the billing engine.",
		ConstLabels: constLabels,
	}, []string{"from", "to"})
	permanentFails := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "autobill_permanent_fail_total",
		Help:        "Invoices moved to PERMANENT_FAIL by the month-end sweep.",
		ConstLabels: constLabels,
	}, []string{"from"})
	batchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "autobill_batch_duration_seconds",
		Help:        "Time to charge one status group, from fetch to join.",
		Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600, 1800},
		ConstLabels: constLabels,
	}, []string{"status"})
	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "autobill_run_duration_seconds",
		Help:        "Time to complete one scheduled billing run.",
		Buckets:     []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600},
		ConstLabels: constLabels,
	})
	runsSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "autobill_runs_skipped_total",
		Help:        "Billing runs skipped because another replica held the run lock.",
		ConstLabels: constLabels,
	})

	registerer.MustRegister(
		chargeOutcomes,
		chargeAttempts,
		transitions,
		permanentFails,
		batchDuration,
		runDuration,
		runsSkipped,
	)

	return &BillingMetrics{
		chargeOutcomes: chargeOutcomes,
		chargeAttempts: chargeAttempts,
		transitions:    transitions,
		permanentFails: permanentFails,
		batchDuration:  batchDuration,
		runDuration:    runDuration,
		runsSkipped:    runsSkipped,
	}
}

func (m *BillingMetrics) IncChargeOutcome(outcome string) {
	if m == nil {
		return
	}
	m.chargeOutcomes.WithLabelValues(strings.TrimSpace(outcome)).Inc()
}

func (m *BillingMetrics) IncChargeAttempt() {
	if m == nil {
		return
	}
	m.chargeAttempts.Inc()
}

func (m *BillingMetrics) IncTransition(from, to string) {
	if m == nil || from == to {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *BillingMetrics) IncPermanentFail(from string) {
	if m == nil {
		return
	}
	m.permanentFails.WithLabelValues(from).Inc()
}

func (m *BillingMetrics) ObserveBatchDuration(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.batchDuration.WithLabelValues(status).Observe(d.Seconds())
}

func (m *BillingMetrics) ObserveRunDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Observe(d.Seconds())
}

func (m *BillingMetrics) IncRunSkipped() {
	if m == nil {
		return
	}
	m.runsSkipped.Inc()
}

func labelOrDefault(value, def string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}
	return value
}
