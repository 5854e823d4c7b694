package sentry

import (
	sentry "github.com/getsentry/sentry-go"

	"github.com/extendi/gitlab-mirror-pull/internal/log"
)

// ConfigureSentry configures the sentry DSN. It is a no-op when no DSN is
// given.
func ConfigureSentry(version, dsn, environment string) {
	if dsn == "" {
		return
	}

	log.Default().Debug("Using sentry logging")

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     "v" + version,
	}); err != nil {
		log.Default().WithError(err).Warn("unable to initialize sentry client")
	}
}
