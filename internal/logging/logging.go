package logging

import (
	"os" // Log output

	"github.com/sirupsen/logrus" // Structured logging
)

// Setup configures the global logrus logger: JSON in production, full text otherwise
func Setup(isProd bool, level string) {
	if isProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logrus.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
		logrus.WithField("level", level).Warn("unknown LOG_LEVEL, using info")
	}
	logrus.SetLevel(lvl)
}
