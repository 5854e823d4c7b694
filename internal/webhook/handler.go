package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/extendi/gitlab-mirror-pull/internal/log"
	"github.com/extendi/gitlab-mirror-pull/internal/mirror"
)

const maxPayloadBytes = 1 << 20

var requestTotals = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gitlab_mirror_pull_webhook_requests_total",
		Help: "Total number of webhook requests, partitioned by response code",
	},
	[]string{"code"},
)

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

// Handler accepts provider push notifications and syncs the single mirrored
// repository the notification refers to.
type Handler struct {
	rootDir  string
	syncer   Syncer
	trigger  Triggerer
	reporter Reporter
	logger   *logrus.Entry
}

// NewHandler builds the webhook http.Handler. reporter may be nil, in which
// case per-webhook reports are only logged.
func NewHandler(rootDir string, syncer Syncer, trigger Triggerer, reporter Reporter) http.Handler {
	handler := &Handler{
		rootDir:  rootDir,
		syncer:   syncer,
		trigger:  trigger,
		reporter: reporter,
		logger:   log.Default(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, "ok")
	})
	mux.Handle("/", handler)

	return mux
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	code, err := h.handle(r)
	if err != nil {
		h.logger.WithError(err).WithField("code", code).Warn("webhook rejected")
		http.Error(w, err.Error(), code)
	} else {
		fmt.Fprintln(w, "ok")
	}

	requestTotals.WithLabelValues(fmt.Sprintf("%d", code)).Inc()
}

func (h *Handler) handle(r *http.Request) (int, error) {
	if r.Method != http.MethodPost {
		return http.StatusMethodNotAllowed, errors.New("webhook requests must be POSTs")
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		return http.StatusBadRequest, fmt.Errorf("reading payload: %w", err)
	}

	payload, err := ParsePayload(body)
	if err != nil {
		return http.StatusBadRequest, err
	}

	repo := ResolvePath(h.rootDir, payload)
	if fi, err := os.Stat(repo); err != nil || !fi.IsDir() {
		return http.StatusNotFound, fmt.Errorf("no mirror at %s", repo)
	}

	namespace := payload.Namespace() + "/" + payload.Name()
	logger := h.logger.WithFields(logrus.Fields{"namespace": namespace, "repo": repo})
	logger.Info("webhook received")

	report, updated := h.syncer.Run(r.Context(), []string{repo})

	if err := h.trigger.MaybeTrigger(r.Context(), namespace, len(updated) > 0); err != nil {
		logger.WithError(err).Warn("pipeline trigger failed")
	}

	if h.reporter != nil && len(report.Failures()) > 0 {
		if err := h.reporter.Send(r.Context(), report); err != nil {
			logger.WithError(err).Warn("sending report failed")
		}
	}

	return http.StatusOK, nil
}
