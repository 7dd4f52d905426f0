package transitions

import (
	// External Packages
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultApplied = "applied"
	resultNoop    = "noop"
	resultFailed  = "failed"
)

var transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pix_stream",
	Name:      "transitions_total",
	Help:      "Transition attempts by entity, step and result.",
}, []string{"entity", "step", "result"})

func observe(entity, step, result string) {
	transitionsTotal.WithLabelValues(entity, step, result).Inc()
}
