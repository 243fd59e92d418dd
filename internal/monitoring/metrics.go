package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Run metrics
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradesim_runs_total",
			Help: "Total number of simulation runs by mode and status",
		},
		[]string{"mode", "status"},
	)

	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tradesim_run_duration_seconds",
			Help:    "Distribution of simulation run durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	// Execution metrics
	fillsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradesim_fills_total",
			Help: "Total number of simulated fills",
		},
		[]string{"symbol", "side"},
	)

	feesPaid = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradesim_fees_paid_total",
			Help: "Cumulative simulated fees",
		},
		[]string{"symbol"},
	)

	// Risk metrics
	riskDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradesim_risk_decisions_total",
			Help: "Risk engine decisions by outcome and reason",
		},
		[]string{"decision", "reason"},
	)

	// Portfolio metrics
	portfolioEquity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tradesim_portfolio_equity",
			Help: "Current simulated portfolio equity",
		},
		[]string{"run_id"},
	)

	portfolioDrawdown = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tradesim_portfolio_drawdown",
			Help: "Current drawdown from peak equity",
		},
		[]string{"run_id"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradesim_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(runsTotal)
	prometheus.MustRegister(runDuration)
	prometheus.MustRegister(fillsTotal)
	prometheus.MustRegister(feesPaid)
	prometheus.MustRegister(riskDecisionsTotal)
	prometheus.MustRegister(portfolioEquity)
	prometheus.MustRegister(portfolioDrawdown)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler serves the Prometheus metrics endpoint.
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordRun records a completed run.
func RecordRun(mode, status string, seconds float64) {
	runsTotal.WithLabelValues(mode, status).Inc()
	runDuration.WithLabelValues(mode).Observe(seconds)
}

// RecordFill records one simulated fill.
func RecordFill(symbol, side string, fee float64) {
	fillsTotal.WithLabelValues(symbol, side).Inc()
	feesPaid.WithLabelValues(symbol).Add(fee)
}

// RecordRiskDecision records one risk engine outcome.
func RecordRiskDecision(decision, reason string) {
	riskDecisionsTotal.WithLabelValues(decision, reason).Inc()
}

// UpdatePortfolio updates the equity and drawdown gauges for a run.
func UpdatePortfolio(runID string, equity, drawdown float64) {
	portfolioEquity.WithLabelValues(runID).Set(equity)
	portfolioDrawdown.WithLabelValues(runID).Set(drawdown)
}

// RecordError records an error metric
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}
