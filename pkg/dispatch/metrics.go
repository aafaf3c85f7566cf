package dispatch

import (
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"

	ditcmetrics "github.com/kooba/ditc-deployer/pkg/metrics"
)

var (
	// A create event that deploys runs for as long as its jobs do;
	// skipped and failed events are over in well under a second.
	eventDuration = prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
		Namespace: ditcmetrics.Namespace,
		Subsystem: "dispatch",
		Name:      "event_duration_seconds",
		Help:      "Duration of event handling, in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600, 1200},
	}, []string{ditcmetrics.LabelEventType, ditcmetrics.LabelSuccess})
)
