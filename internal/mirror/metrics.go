package mirror

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchTotals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gitlab_mirror_pull_fetches_total",
			Help: "Total number of remote fetches, partitioned by result",
		},
		[]string{"result"},
	)
	repoSkippedTotals = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gitlab_mirror_pull_stale_repositories_total",
			Help: "Total number of selected repositories that were gone at fetch time",
		},
	)
	runTotals = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gitlab_mirror_pull_runs_total",
			Help: "Total number of mirror orchestration runs",
		},
	)
)

const (
	resultUpdated  = "updated"
	resultUpToDate = "up_to_date"
	resultError    = "error"
)
