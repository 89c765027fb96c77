package tree

import (
	"io"

	"github.com/sirupsen/logrus"
)

// DiscardLogger returns an entry that drops everything. Components use it
// when no logger is configured.
func DiscardLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(logger)
}

func loggerOrDiscard(log *logrus.Entry) *logrus.Entry {
	if log == nil {
		return DiscardLogger()
	}
	return log
}
