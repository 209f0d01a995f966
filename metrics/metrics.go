// Package metrics exposes Prometheus collectors for solve outcomes. Attach
// Hook to captcha.Config.MetricsHook.
package metrics

import (
	"errors"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	captcha "github.com/anatolykoptev/go-captcha"
)

// Metrics holds the collectors.
type Metrics struct {
	solves   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	balance  *prometheus.GaugeVec
}

// MustNewMetrics registers the collectors with reg, reusing any that are
// already registered. A nil reg means the default registerer.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		solves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "captcha",
				Name:      "solves_total",
				Help:      "Solve calls by provider, challenge kind and final state.",
			},
			[]string{"provider", "kind", "state"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "captcha",
				Name:      "solve_duration_seconds",
				Help:      "Wall time of solve calls that completed.",
				Buckets:   []float64{1, 5, 10, 20, 30, 45, 60, 90, 120, 180, 300},
			},
			[]string{"provider", "kind"},
		),
		balance: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "captcha",
				Name:      "balance",
				Help:      "Last observed account balance.",
			},
			[]string{"provider"},
		),
	}
	m.solves = register(reg, m.solves)
	m.duration = register(reg, m.duration)
	m.balance = register(reg, m.balance)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// Hook returns a function suitable for captcha.Config.MetricsHook.
func (m *Metrics) Hook() func(provider string, kind captcha.ChallengeKind, state captcha.State, elapsed time.Duration) {
	return m.Observe
}

// Observe records one finished solve call.
func (m *Metrics) Observe(provider string, kind captcha.ChallengeKind, state captcha.State, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.solves.WithLabelValues(provider, kind.String(), state.String()).Inc()
	if state == captcha.StateCompleted {
		m.duration.WithLabelValues(provider, kind.String()).Observe(elapsed.Seconds())
	}
}

// ObserveBalance records the balance of provider. Unlimited balances are skipped.
func (m *Metrics) ObserveBalance(provider string, balance float64) {
	if m == nil || math.IsInf(balance, 0) || math.IsNaN(balance) {
		return
	}
	m.balance.WithLabelValues(provider).Set(balance)
}
