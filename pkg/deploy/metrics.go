package deploy

import (
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"

	ditcmetrics "github.com/kooba/ditc-deployer/pkg/metrics"
)

var (
	// Most of a deployment is helm waiting on the release; a chart
	// upgrade takes from tens of seconds to a few minutes.
	deployDuration = prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
		Namespace: ditcmetrics.Namespace,
		Subsystem: "deploy",
		Name:      "job_duration_seconds",
		Help:      "Duration of deployment jobs, from creation to completion, in seconds.",
		Buckets:   []float64{1, 5, 10, 20, 30, 45, 60, 90, 120, 180, 300, 600},
	}, []string{ditcmetrics.LabelSuccess})
)
