package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/extendi/gitlab-mirror-pull/internal/config"
	"github.com/extendi/gitlab-mirror-pull/internal/gitlab"
	"github.com/extendi/gitlab-mirror-pull/internal/log"
)

var triggerTotals = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gitlab_mirror_pull_pipeline_triggers_total",
		Help: "Total number of pipeline trigger attempts, partitioned by result",
	},
	[]string{"result"},
)

// Decide evaluates the trigger rules in configured order and returns the
// branch of the first rule whose repo fragment is a substring of namespace.
// The boolean is false when no rule matches.
//
// Decide is a pure function: it never talks to the API.
func Decide(namespace string, rules []config.TriggerRule) (string, bool) {
	for _, rule := range rules {
		if strings.Contains(namespace, rule.Repo) {
			return rule.Branch, true
		}
	}
	return "", false
}

// Trigger starts pipelines for repositories whose fetch brought new
// references.
type Trigger struct {
	client gitlab.Client
	rules  []config.TriggerRule
	logger *logrus.Entry
}

// NewTrigger creates a Trigger evaluating the given rules against client.
func NewTrigger(client gitlab.Client, rules []config.TriggerRule) *Trigger {
	return &Trigger{
		client: client,
		rules:  rules,
		logger: log.Default(),
	}
}

// MaybeTrigger creates a pipeline for namespace iff the fetch actually
// updated references and a trigger rule matches. A trigger failure is
// returned to the caller for reporting; it never aborts the surrounding run
// and is not retried.
func (t *Trigger) MaybeTrigger(ctx context.Context, namespace string, updated bool) error {
	if !updated {
		return nil
	}

	branch, ok := Decide(namespace, t.rules)
	if !ok {
		return nil
	}

	pipeline, err := t.client.CreatePipeline(ctx, namespace, branch)
	if err != nil {
		triggerTotals.WithLabelValues("error").Inc()
		return fmt.Errorf("trigger pipeline for %q: %w", namespace, err)
	}

	triggerTotals.WithLabelValues("created").Inc()
	t.logger.WithFields(logrus.Fields{
		"namespace": namespace,
		"branch":    branch,
		"pipeline":  pipeline.ID,
	}).Info("pipeline created")

	return nil
}
