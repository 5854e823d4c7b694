// Package notify delivers finished mirror reports. The orchestration core
// only hands over rendered content; subject lines and transport live here.
package notify

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/extendi/gitlab-mirror-pull/internal/config"
	"github.com/extendi/gitlab-mirror-pull/internal/log"
	"github.com/extendi/gitlab-mirror-pull/internal/mirror"
)

// Notifier delivers the outcome of one mirror run.
type Notifier interface {
	// Send delivers the report. Empty reports are dropped without delivery.
	Send(ctx context.Context, report *mirror.Report) error
}

// ForConfig picks the notifier matching the notification settings: mail when
// an SMTP address is configured, plain logging otherwise.
func ForConfig(cfg config.Notifications) Notifier {
	if cfg.SMTPAddr != "" {
		return &SMTPNotifier{cfg: cfg, send: smtp.SendMail}
	}
	return &LogNotifier{logger: log.Default()}
}

// LogNotifier writes the report into the process log.
type LogNotifier struct {
	logger *logrus.Entry
}

// Send implements Notifier.
func (n *LogNotifier) Send(_ context.Context, report *mirror.Report) error {
	if report.Empty() {
		return nil
	}

	logger := n.logger.WithField("run_id", report.RunID)
	for _, failure := range report.Failures() {
		logger.Warn(failure)
	}
	logger.WithFields(logrus.Fields{
		"fetched":  len(report.Successes()),
		"failures": len(report.Failures()),
	}).Info("mirror report")

	return nil
}

// SMTPNotifier mails the report as a multipart/alternative message carrying
// both the text and the HTML rendering.
type SMTPNotifier struct {
	cfg  config.Notifications
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// Send implements Notifier.
func (n *SMTPNotifier) Send(_ context.Context, report *mirror.Report) error {
	if report.Empty() {
		return nil
	}

	msg, err := n.compose(report)
	if err != nil {
		return fmt.Errorf("composing report mail: %w", err)
	}

	if err := n.send(n.cfg.SMTPAddr, nil, n.cfg.From, n.cfg.To, msg); err != nil {
		return fmt.Errorf("sending report mail: %w", err)
	}

	return nil
}

func (n *SMTPNotifier) compose(report *mirror.Report) ([]byte, error) {
	var b strings.Builder
	writer := multipart.NewWriter(&b)

	fmt.Fprintf(&b, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(n.cfg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject(report))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n", writer.Boundary())
	b.WriteString("\r\n")

	for _, part := range []struct {
		contentType string
		body        string
	}{
		{"text/plain; charset=utf-8", report.Text()},
		{"text/html; charset=utf-8", report.HTML()},
	} {
		header := textproto.MIMEHeader{"Content-Type": {part.contentType}}
		partWriter, err := writer.CreatePart(header)
		if err != nil {
			return nil, err
		}
		if _, err := partWriter.Write([]byte(part.body)); err != nil {
			return nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	return []byte(b.String()), nil
}

func subject(report *mirror.Report) string {
	if failures := len(report.Failures()); failures > 0 {
		return fmt.Sprintf("[gitlab-mirror-pull] %d fetch failure(s)", failures)
	}
	return fmt.Sprintf("[gitlab-mirror-pull] %d repository(s) fetched", len(report.Successes()))
}
