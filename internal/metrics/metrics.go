package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apptbot_messages_total",
			Help: "Outbound messages by kind and outcome",
		},
		[]string{"kind", "status"}, // reply|buttons|reminder|follow_up , sent|failed
	)

	SweepRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apptbot_sweep_runs_total",
			Help: "Sweep passes by job",
		},
		[]string{"job"}, // reminder|follow_up
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		MessagesTotal,
		SweepRunsTotal,
	)
}
