package biz

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	spinsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bonanza_spins_total",
			Help: "Spins replayed, by result",
		},
		[]string{"result"},
	)
	spinRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bonanza_spin_rejected_total",
			Help: "Spin requests rejected before reaching the backend",
		},
		[]string{"reason"},
	)
	hazardFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bonanza_hazard_failures_total",
			Help: "Hazard explosions that failed and were skipped",
		},
	)
	bonusEntered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bonanza_bonus_entered_total",
			Help: "Bonus rounds entered",
		},
	)
)

func init() {
	prometheus.MustRegister(spinsTotal, spinRejected, hazardFailures, bonusEntered)
}
