package logging

import (
	"github.com/sirupsen/logrus"
)

// Log is the shared logger. Commands set the level once at startup; the
// pricing core never logs, adapters and the runner do.
var Log = logrus.New()

// SetLevel applies a textual log level, defaulting to info on junk input.
func SetLevel(level string) {
	switch level {
	case "debug":
		Log.SetLevel(logrus.DebugLevel)
	case "warn":
		Log.SetLevel(logrus.WarnLevel)
	case "error":
		Log.SetLevel(logrus.ErrorLevel)
	default:
		Log.SetLevel(logrus.InfoLevel)
	}
}
