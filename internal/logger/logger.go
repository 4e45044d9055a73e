// Package logger builds the service's logrus loggers.
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a logger at logLevel, falling back to info. JSON output is
// used when jsonOutput is set, full-timestamp text otherwise.
func NewLogger(logLevel string, jsonOutput bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if jsonOutput {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		log.WithField("log_level", logLevel).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	return log
}
