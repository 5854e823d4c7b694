package notify

import (
	"context"
	"errors"
	"io"
	"net/smtp"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/extendi/gitlab-mirror-pull/internal/config"
	"github.com/extendi/gitlab-mirror-pull/internal/mirror"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.Out = io.Discard
	return logrus.NewEntry(logger)
}

func TestForConfig(t *testing.T) {
	require.IsType(t, &LogNotifier{}, ForConfig(config.Notifications{}))
	require.IsType(t, &SMTPNotifier{}, ForConfig(config.Notifications{SMTPAddr: "localhost:25"}))
}

func TestSMTPNotifierSend(t *testing.T) {
	var sentAddr, sentFrom string
	var sentTo []string
	var sentMsg []byte

	notifier := &SMTPNotifier{
		cfg: config.Notifications{
			SMTPAddr: "localhost:25",
			From:     "mirror@example.com",
			To:       []string{"ops@example.com"},
		},
		send: func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
			sentAddr, sentFrom, sentTo, sentMsg = addr, from, to, msg
			return nil
		},
	}

	report := mirror.NewReport()
	report.RecordSuccess("/mirrors/group/project.git")
	report.RecordFailure("/mirrors/group/other.git", "github", errors.New("timeout"))

	require.NoError(t, notifier.Send(context.Background(), report))

	require.Equal(t, "localhost:25", sentAddr)
	require.Equal(t, "mirror@example.com", sentFrom)
	require.Equal(t, []string{"ops@example.com"}, sentTo)

	msg := string(sentMsg)
	require.Contains(t, msg, "Subject: [gitlab-mirror-pull] 1 fetch failure(s)")
	require.Contains(t, msg, "multipart/alternative")
	require.Contains(t, msg, "/mirrors/group/project.git")
	require.Contains(t, msg, `fetch "github" of /mirrors/group/other.git failed: timeout`)
}

func TestSMTPNotifierSuccessSubject(t *testing.T) {
	var sentMsg []byte

	notifier := &SMTPNotifier{
		cfg: config.Notifications{SMTPAddr: "localhost:25", From: "a@b", To: []string{"c@d"}},
		send: func(_ string, _ smtp.Auth, _ string, _ []string, msg []byte) error {
			sentMsg = msg
			return nil
		},
	}

	report := mirror.NewReport()
	report.RecordSuccess("/mirrors/group/project.git")

	require.NoError(t, notifier.Send(context.Background(), report))
	require.Contains(t, string(sentMsg), "Subject: [gitlab-mirror-pull] 1 repository(s) fetched")
}

func TestSMTPNotifierSkipsEmptyReport(t *testing.T) {
	notifier := &SMTPNotifier{
		cfg: config.Notifications{SMTPAddr: "localhost:25"},
		send: func(string, smtp.Auth, string, []string, []byte) error {
			t.Fatal("empty report must not be mailed")
			return nil
		},
	}

	require.NoError(t, notifier.Send(context.Background(), mirror.NewReport()))
}

func TestSMTPNotifierSendFailure(t *testing.T) {
	notifier := &SMTPNotifier{
		cfg: config.Notifications{SMTPAddr: "localhost:25", From: "a@b", To: []string{"c@d"}},
		send: func(string, smtp.Auth, string, []string, []byte) error {
			return errors.New("connection refused")
		},
	}

	report := mirror.NewReport()
	report.RecordSuccess("/mirrors/group/project.git")

	err := notifier.Send(context.Background(), report)
	require.Error(t, err)
	require.Contains(t, err.Error(), "connection refused")
}

func TestLogNotifierNeverFails(t *testing.T) {
	notifier := &LogNotifier{logger: testLogger()}

	require.NoError(t, notifier.Send(context.Background(), mirror.NewReport()))

	report := mirror.NewReport()
	report.RecordFailure("/mirrors/group/project.git", "gitlab", errors.New("timeout"))
	require.NoError(t, notifier.Send(context.Background(), report))
}
