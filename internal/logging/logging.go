// Logger construction and the slog bridge used by the engine packages
package logging

import (
	"io"
	"log/slog"
	"os"

	slogrus "github.com/samber/slog-logrus/v2"
	"github.com/sirupsen/logrus"
)

// New returns a logrus logger writing to stderr. Debug mode switches to
// human readable text with full timestamps; otherwise entries are JSON.
func New(debugMode bool) *logrus.Logger {
	return NewWithOutput(os.Stderr, debugMode)
}

func NewWithOutput(out io.Writer, debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}

// Slog returns a *slog.Logger whose records are written through logger.
// Groups become nested fields.
func Slog(logger *logrus.Logger) *slog.Logger {
	return slog.New(slogrus.Option{
		Level:  leveler{logger},
		Logger: logger,
	}.NewLogrusHandler())
}

// leveler reports the slog level matching the logger's current level.
type leveler struct {
	logger *logrus.Logger
}

func (l leveler) Level() slog.Level {
	switch {
	case l.logger.IsLevelEnabled(logrus.DebugLevel):
		return slog.LevelDebug
	case l.logger.IsLevelEnabled(logrus.InfoLevel):
		return slog.LevelInfo
	case l.logger.IsLevelEnabled(logrus.WarnLevel):
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
