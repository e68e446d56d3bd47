package harness

import (
	"math/big"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of a harness run.
type Metrics struct {
	ScenariosTotal   *prometheus.CounterVec
	ScenarioDuration *prometheus.HistogramVec
	PriceChecks      *prometheus.CounterVec
	PriceDeviation   prometheus.Histogram
	TxFees           prometheus.Counter
}

// NewMetrics registers the harness collectors on reg. A nil reg gets a
// private registry so tests and repeated runs never collide.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		ScenariosTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cennzx",
				Subsystem: "harness",
				Name:      "scenarios_total",
				Help:      "Scenarios run, by action and outcome",
			},
			[]string{"action", "result", "kind"},
		),
		ScenarioDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "cennzx",
				Subsystem: "harness",
				Name:      "scenario_duration_seconds",
				Help:      "Wall time of one scenario including finality waits",
				Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"action"},
		),
		PriceChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cennzx",
				Subsystem: "harness",
				Name:      "price_checks_total",
				Help:      "Live quote comparisons against the formula",
			},
			[]string{"result"},
		),
		PriceDeviation: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "cennzx",
				Subsystem: "harness",
				Name:      "price_deviation_units",
				Help:      "Absolute difference between live and formula prices in base units",
				Buckets:   []float64{0, 1, 2, 10, 100, 1e4, 1e8},
			},
		),
		TxFees: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "cennzx",
				Subsystem: "harness",
				Name:      "tx_fees_total",
				Help:      "Transaction fees paid in core asset base units",
			},
		),
	}
}

func (m *Metrics) observePrice(live, formula *big.Int, ok bool) {
	if m == nil {
		return
	}
	result := "match"
	if !ok {
		result = "mismatch"
	}
	m.PriceChecks.WithLabelValues(result).Inc()
	diff := new(big.Int).Sub(live, formula)
	deviation, _ := new(big.Float).SetInt(diff.Abs(diff)).Float64()
	m.PriceDeviation.Observe(deviation)
}

func (m *Metrics) observeFee(fee *big.Int) {
	if m == nil || fee == nil {
		return
	}
	value, _ := new(big.Float).SetInt(fee).Float64()
	m.TxFees.Add(value)
}
