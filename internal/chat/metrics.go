package chat

import "github.com/prometheus/client_golang/prometheus"

var (
	repliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatbot",
			Subsystem: "chat",
			Name:      "replies_total",
			Help:      "Replies by outcome (ok, empty, error, canceled)",
		},
		[]string{"outcome"},
	)

	fragmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatbot",
			Subsystem: "chat",
			Name:      "fragments_total",
			Help:      "Generated fragments by action (accepted, dropped)",
		},
		[]string{"action"},
	)

	workerErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chatbot",
			Subsystem: "chat",
			Name:      "worker_errors_total",
			Help:      "Generations that ended with a runtime error",
		},
	)

	firstFragmentSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "chatbot",
			Subsystem: "chat",
			Name:      "first_fragment_seconds",
			Help:      "Time from worker start to the first generated fragment",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)
)

func init() {
	prometheus.MustRegister(repliesTotal, fragmentsTotal, workerErrorsTotal, firstFragmentSeconds)
}
