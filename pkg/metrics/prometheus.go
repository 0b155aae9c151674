package metrics

import (
	"time"

	"TradePilot/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	cycles        *prometheus.CounterVec
	cycleDuration *prometheus.HistogramVec
	transitions   *prometheus.CounterVec
	budget        *prometheus.GaugeVec
	externalCalls *prometheus.HistogramVec
	externalErrs  *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
}

// New registers the collectors on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the collectors on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		cycles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tradepilot_cycles_total",
			Help: "Workflow cycles by result",
		}, []string{"workflow", "result"}),
		cycleDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tradepilot_cycle_duration_seconds",
			Help:    "Workflow cycle duration",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		}, []string{"workflow"}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tradepilot_trade_transitions_total",
			Help: "Accepted trade ledger writes by resulting status",
		}, []string{"status"}),
		budget: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tradepilot_cycle_budget_eth",
			Help: "ETH budget sized in the latest cycle",
		}, []string{"workflow"}),
		externalCalls: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tradepilot_external_call_seconds",
			Help:    "Latency of calls to external providers",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider", "op"}),
		externalErrs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tradepilot_external_call_errors_total",
			Help: "Failed calls to external providers",
		}, []string{"provider", "op"}),
		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tradepilot_errors_total",
			Help: "Errors by kind",
		}, []string{"kind"}),
	}
}

func (r *Recorder) ObserveCycle(workflow, result string, d time.Duration) {
	r.cycles.WithLabelValues(workflow, result).Inc()
	r.cycleDuration.WithLabelValues(workflow).Observe(d.Seconds())
}

func (r *Recorder) IncTransition(status models.TradeStatus) {
	r.transitions.WithLabelValues(string(status)).Inc()
}

func (r *Recorder) SetBudget(workflow string, budget float64) {
	r.budget.WithLabelValues(workflow).Set(budget)
}

func (r *Recorder) ObserveExternalCall(provider, op string, d time.Duration, err error) {
	r.externalCalls.WithLabelValues(provider, op).Observe(d.Seconds())
	if err != nil {
		r.externalErrs.WithLabelValues(provider, op).Inc()
	}
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// Nop discards everything.
type Nop struct{}

func (Nop) ObserveCycle(string, string, time.Duration)               {}
func (Nop) IncTransition(models.TradeStatus)                         {}
func (Nop) SetBudget(string, float64)                                {}
func (Nop) ObserveExternalCall(string, string, time.Duration, error) {}
func (Nop) RecordError(string)                                       {}
