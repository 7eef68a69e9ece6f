package utils

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the process-wide logger. It is usable before InitLogger runs so
// packages can log from tests without setup.
var Logger = newDefaultLogger()

func newDefaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// InitLogger applies the configured level and format ("text" or "json").
func InitLogger(level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	Logger.SetLevel(lvl)

	switch format {
	case "json":
		Logger.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("log format: unknown %q", format)
	}
	return nil
}
