package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var TreeMutations = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "timetracker",
	Subsystem: "category_tree",
	Name:      "mutations_total",
	Help:      "Structural category tree mutations by operation and result.",
}, []string{"op", "result"})

var TreeMutationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "timetracker",
	Subsystem: "category_tree",
	Name:      "mutation_duration_seconds",
	Help:      "Wall time of one structural mutation transaction.",
	Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
}, []string{"op"})

var TreeViolations = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "timetracker",
	Subsystem: "category_tree",
	Name:      "violations",
	Help:      "Nested-set invariant violations found by the last integrity run, per account.",
}, []string{"account"})

var IntegrityRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "timetracker",
	Subsystem: "category_tree",
	Name:      "integrity_runs_total",
}, []string{"result"})

// Register adds every collector of this package to reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{TreeMutations, TreeMutationDuration, TreeViolations, IntegrityRuns} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func ObserveMutation(op string, took time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	TreeMutations.WithLabelValues(op, result).Inc()
	TreeMutationDuration.WithLabelValues(op).Observe(took.Seconds())
}
