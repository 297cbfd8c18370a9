package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payproc_events_total",
			Help: "Payment events by pipeline stage",
		},
		[]string{"stage"}, // received|ingested|duplicate|completed|failed|published
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		EventsTotal,
	)
}
