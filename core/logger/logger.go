package logger

import (
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	levelEnv  = "CORE_CHAINCODE_LOGGING_LEVEL"
	formatEnv = "CORE_CHAINCODE_LOGGING_FORMAT"

	defaultLevel = logrus.WarnLevel
)

var (
	lg   *logrus.Logger
	once sync.Once
)

// Logger returns the logger for chaincode
func Logger() *logrus.Logger {
	once.Do(func() {
		lg = New(os.Getenv(levelEnv), os.Getenv(formatEnv))
	})
	return lg
}

// New builds a logger writing to stderr. Unknown levels fall back to warning,
// the peer's default for chaincode containers.
func New(level, format string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = defaultLevel
	}
	l.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000 MST",
		})
	}

	return l
}
