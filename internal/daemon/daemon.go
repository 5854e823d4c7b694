// Package daemon wires repository discovery, fetch orchestration, pipeline
// triggers and report delivery into complete mirror runs.
package daemon

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/extendi/gitlab-mirror-pull/internal/config"
	"github.com/extendi/gitlab-mirror-pull/internal/dontpanic"
	"github.com/extendi/gitlab-mirror-pull/internal/log"
	"github.com/extendi/gitlab-mirror-pull/internal/mirror"
)

// retryBackoff delays the next run after a panicked one.
const retryBackoff = time.Minute

// Syncer runs the fetch orchestration for the repositories it is given.
type Syncer interface {
	Run(ctx context.Context, repos []string) (*mirror.Report, []string)
}

// Triggerer decides and fires pipeline triggers for updated repositories.
type Triggerer interface {
	MaybeTrigger(ctx context.Context, namespace string, updated bool) error
}

// Reporter delivers a finished mirror report.
type Reporter interface {
	Send(ctx context.Context, report *mirror.Report) error
}

// Daemon periodically mirrors every repository under the configured root.
type Daemon struct {
	mirrorCfg config.Mirror
	interval  time.Duration
	syncer    Syncer
	trigger   Triggerer
	reporter  Reporter
	logger    *logrus.Entry
}

// New assembles a daemon from its collaborators.
func New(mirrorCfg config.Mirror, interval time.Duration, syncer Syncer, trigger Triggerer, reporter Reporter) *Daemon {
	return &Daemon{
		mirrorCfg: mirrorCfg,
		interval:  interval,
		syncer:    syncer,
		trigger:   trigger,
		reporter:  reporter,
		logger:    log.Default(),
	}
}

// RunOnce performs one full mirror run: discover repositories, fetch their
// eligible remotes, fire pipeline triggers for the updated ones, and hand the
// report to the notifier. Fetch and trigger failures never abort the run.
func (d *Daemon) RunOnce(ctx context.Context) *mirror.Report {
	repos, err := mirror.Select(d.mirrorCfg.Root, d.mirrorCfg.Ignore)
	if err != nil {
		// An unreadable root yields an empty run, not a crash.
		d.logger.WithError(err).Error("repository discovery failed")
	}

	report, updated := d.syncer.Run(ctx, repos)

	for _, repo := range updated {
		namespace := mirror.Namespace(d.mirrorCfg.Root, repo)
		if err := d.trigger.MaybeTrigger(ctx, namespace, true); err != nil {
			d.logger.WithError(err).WithField("namespace", namespace).Warn("pipeline trigger failed")
		}
	}

	if err := d.reporter.Send(ctx, report); err != nil {
		d.logger.WithError(err).Warn("sending report failed")
	}

	return report
}

// Run keeps performing full mirror runs, one every interval, until the
// context is cancelled. A panicking run is recovered and retried after a
// backoff instead of taking the process down.
func (d *Daemon) Run(ctx context.Context) {
	forever := dontpanic.NewForever(retryBackoff)
	forever.Go(func() {
		d.RunOnce(ctx)

		select {
		case <-ctx.Done():
		case <-time.After(d.interval):
		}
	})

	<-ctx.Done()
	forever.Cancel()
}
