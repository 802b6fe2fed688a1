package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the bot's collectors. It implements router.Observer and
// flow.Recorder.
type Registry struct {
	reg *prometheus.Registry

	AttemptsTotal  *prometheus.CounterVec
	AttemptLatency *prometheus.HistogramVec
	ReportsTotal   *prometheus.CounterVec
	ReportLatency  *prometheus.HistogramVec
	RepairStages   *prometheus.CounterVec
	OrdersTotal    *prometheus.CounterVec
	ProviderState  *prometheus.GaugeVec
}

func New() *Registry {
	reg := prometheus.NewRegistry()
	m := &Registry{
		reg: reg,
		AttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "astrohub_provider_attempts_total",
			Help: "LLM provider attempts by outcome",
		}, []string{"provider", "model", "outcome"}),
		AttemptLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "astrohub_provider_latency_ms",
			Help:    "LLM provider attempt latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(50, 2, 10),
		}, []string{"provider", "model"}),
		ReportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "astrohub_reports_total",
			Help: "Report pipeline runs by kind and outcome",
		}, []string{"kind", "outcome"}),
		ReportLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "astrohub_report_latency_ms",
			Help:    "End-to-end report generation latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10),
		}, []string{"kind"}),
		RepairStages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "astrohub_repair_stage_total",
			Help: "Repair stage that recovered the report object",
		}, []string{"kind", "stage"}),
		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "astrohub_orders_total",
			Help: "Orders created by kind",
		}, []string{"kind"}),
		ProviderState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "astrohub_provider_health_state",
			Help: "Provider health: 0 healthy, 1 degraded, 2 down",
		}, []string{"provider"}),
	}
	reg.MustRegister(m.AttemptsTotal, m.AttemptLatency, m.ReportsTotal, m.ReportLatency, m.RepairStages, m.OrdersTotal, m.ProviderState)
	return m
}

// Register adds extra collectors, such as the rate limiter's, to the registry.
func (m *Registry) Register(cs ...prometheus.Collector) {
	m.reg.MustRegister(cs...)
}

func (m *Registry) ObserveAttempt(provider, model, outcome string, d time.Duration) {
	m.AttemptsTotal.WithLabelValues(provider, model, outcome).Inc()
	m.AttemptLatency.WithLabelValues(provider, model).Observe(float64(d.Milliseconds()))
}

func (m *Registry) ObserveReport(kind, outcome string, d time.Duration) {
	m.ReportsTotal.WithLabelValues(kind, outcome).Inc()
	m.ReportLatency.WithLabelValues(kind).Observe(float64(d.Milliseconds()))
}

func (m *Registry) ObserveRepairStage(kind, stage string) {
	m.RepairStages.WithLabelValues(kind, stage).Inc()
}

func (m *Registry) ObserveOrder(kind string) {
	m.OrdersTotal.WithLabelValues(kind).Inc()
}

func (m *Registry) SetProviderState(provider string, level float64) {
	m.ProviderState.WithLabelValues(provider).Set(level)
}

func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
