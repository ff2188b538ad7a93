package obs

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	loggerOnce sync.Once
	logger     *logrus.Logger
)

// Logger returns the shared structured logger used across the service.
func Logger() *logrus.Logger {
	loggerOnce.Do(func() {
		logger = logrus.New()
		logger.SetOutput(os.Stdout)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "ts",
			},
		})
		logger.SetLevel(logrus.InfoLevel)
	})
	return logger
}

// SetLevel applies a textual log level such as "debug" or "warn".
func SetLevel(level string) error {
	level = strings.TrimSpace(level)
	if level == "" {
		return nil
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("obs: %w", err)
	}
	Logger().SetLevel(lvl)
	return nil
}

// LogRequest emits one structured line per served HTTP request.
func LogRequest(fields logrus.Fields) {
	entry := Logger().WithFields(fields)
	status, _ := fields["status"].(int)
	switch {
	case status >= 500:
		entry.Error("http request")
	case status >= 400:
		entry.Warn("http request")
	default:
		entry.Info("http request")
	}
}
