package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache lookup results
const (
	lookupHit   = "hit"
	lookupMiss  = "miss"
	lookupError = "error"
)

// Backend fetch outcomes
const (
	fetchSuccess  = "success"
	fetchError    = "error"
	fetchCanceled = "canceled"
)

// PortfolioMetrics holds Prometheus metrics for the portfolio cache
type PortfolioMetrics struct {
	CacheLookups  *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
}

// NewPortfolioMetrics creates portfolio metrics registered on reg.
// A nil reg creates unregistered collectors.
func NewPortfolioMetrics(reg prometheus.Registerer) *PortfolioMetrics {
	factory := promauto.With(reg)

	return &PortfolioMetrics{
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_cache_lookups_total",
				Help: "Total number of balance cache lookups by result",
			},
			[]string{"chain", "result"},
		),
		FetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portfolio_backend_fetch_duration_seconds",
				Help:    "Time taken to fetch a portfolio from a chain backend",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"chain", "outcome"},
		),
	}
}

func (m *PortfolioMetrics) observeLookup(chain, result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(chain, result).Inc()
}

func (m *PortfolioMetrics) observeFetch(chain, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(chain, outcome).Observe(d.Seconds())
}
