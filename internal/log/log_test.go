package log

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestConfigure(t *testing.T) {
	for _, tc := range []struct {
		desc      string
		format    string
		level     string
		formatter logrus.Formatter
		logLevel  logrus.Level
	}{
		{
			desc:      "json format",
			format:    "json",
			formatter: &logrus.JSONFormatter{TimestampFormat: LogTimestampFormat},
			logLevel:  logrus.InfoLevel,
		},
		{
			desc:      "text format",
			format:    "text",
			formatter: &logrus.TextFormatter{TimestampFormat: LogTimestampFormat},
			logLevel:  logrus.InfoLevel,
		},
		{
			desc:     "empty format keeps the logger's formatter",
			logLevel: logrus.InfoLevel,
		},
		{
			desc:      "debug level",
			format:    "json",
			level:     "debug",
			formatter: &logrus.JSONFormatter{TimestampFormat: LogTimestampFormat},
			logLevel:  logrus.DebugLevel,
		},
		{
			desc:      "unparseable level falls back to info",
			format:    "json",
			level:     "nope",
			formatter: &logrus.JSONFormatter{TimestampFormat: LogTimestampFormat},
			logLevel:  logrus.InfoLevel,
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			logger := &logrus.Logger{}

			Configure([]*logrus.Logger{logger}, tc.format, tc.level)

			require.Equal(t, tc.formatter, logger.Formatter)
			require.Equal(t, tc.logLevel, logger.Level)
		})
	}
}

func TestDefaultTagsPid(t *testing.T) {
	entry := Default()
	require.Equal(t, os.Getpid(), entry.Data["pid"])
}
