package mirror

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/extendi/gitlab-mirror-pull/internal/log"
)

// Orchestrator walks a set of mirrored repositories and fetches each of their
// allow-listed remotes. One pair's failure never suppresses another pair's
// fetch: errors are folded into the report at their origin.
type Orchestrator struct {
	fetcher   RemoteFetcher
	providers []string
	workers   int
	logger    *logrus.Entry
}

// NewOrchestrator creates an orchestrator fetching via fetcher. Only remotes
// whose name contains one of the provider substrings are fetched. workers
// bounds how many repositories are processed at once; 1 keeps runs strictly
// sequential.
func NewOrchestrator(fetcher RemoteFetcher, providers []string, workers int) *Orchestrator {
	if workers < 1 {
		workers = 1
	}

	return &Orchestrator{
		fetcher:   fetcher,
		providers: providers,
		workers:   workers,
		logger:    log.Default(),
	}
}

// Run fetches every eligible remote of every given repository. It returns the
// accumulated report and the subset of repos for which at least one fetch
// updated local references; only those are candidates for pipeline triggers.
func (o *Orchestrator) Run(ctx context.Context, repos []string) (*Report, []string) {
	report := NewReport()
	runTotals.Inc()

	logger := o.logger.WithField("run_id", report.RunID)
	logger.WithField("repositories", len(repos)).Info("mirror run started")

	var mu sync.Mutex
	var updated []string

	g := &errgroup.Group{}
	g.SetLimit(o.workers)

	for _, repo := range repos {
		repo := repo

		g.Go(func() error {
			if ctx.Err() != nil {
				logger.WithField("repo", repo).Debug("skipping repository, run aborted")
				return nil
			}

			if o.syncRepository(ctx, logger, report, repo) {
				mu.Lock()
				updated = append(updated, repo)
				mu.Unlock()
			}

			return nil
		})
	}

	// The group members never return errors; failures live in the report.
	_ = g.Wait()

	logger.WithFields(logrus.Fields{
		"updated":  len(updated),
		"failures": len(report.Failures()),
	}).Info("mirror run finished")

	return report, updated
}

// syncRepository fetches all eligible remotes of one repository and reports
// whether any fetch updated local references.
func (o *Orchestrator) syncRepository(ctx context.Context, logger *logrus.Entry, report *Report, repo string) bool {
	// Selection happened earlier; a repository deleted in between is skipped,
	// not reported.
	if fi, err := os.Stat(repo); err != nil || !fi.IsDir() {
		repoSkippedTotals.Inc()
		logger.WithField("repo", repo).Debug("skipping stale repository")
		return false
	}

	remotes, err := o.fetcher.ListRemotes(repo)
	if err != nil {
		fetchTotals.WithLabelValues(resultError).Inc()
		report.RecordFailure(repo, "", err)
		return false
	}

	repoUpdated := false
	for _, remote := range remotes {
		if !o.eligible(remote) {
			continue
		}

		remoteLogger := logger.WithFields(logrus.Fields{"repo": repo, "remote": remote})

		updated, err := o.fetcher.Fetch(ctx, repo, remote)
		if err != nil {
			fetchTotals.WithLabelValues(resultError).Inc()
			remoteLogger.WithError(err).Warn("fetch failed")
			report.RecordFailure(repo, remote, err)
			continue
		}

		report.RecordSuccess(repo)
		if updated {
			fetchTotals.WithLabelValues(resultUpdated).Inc()
			remoteLogger.Info("fetched new references")
			repoUpdated = true
		} else {
			fetchTotals.WithLabelValues(resultUpToDate).Inc()
			remoteLogger.Debug("already up to date")
		}
	}

	return repoUpdated
}

// eligible reports whether the remote name matches the provider allow list.
func (o *Orchestrator) eligible(remote string) bool {
	for _, provider := range o.providers {
		if strings.Contains(remote, provider) {
			return true
		}
	}
	return false
}
