package github

import (
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"

	ditcmetrics "github.com/kooba/ditc-deployer/pkg/metrics"
)

var (
	resolveDuration = prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
		Namespace: ditcmetrics.Namespace,
		Subsystem: "github",
		Name:      "tag_resolution_duration_seconds",
		Help:      "Duration of tag to commit resolution requests, in seconds.",
		Buckets:   stdprometheus.DefBuckets,
	}, []string{ditcmetrics.LabelSuccess})

	hooksReceived = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Namespace: ditcmetrics.Namespace,
		Subsystem: "github",
		Name:      "webhooks_received_total",
		Help:      "Count of GitHub webhook deliveries, by event.",
	}, []string{"event"})
)
