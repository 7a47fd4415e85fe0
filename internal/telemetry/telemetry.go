// Package telemetry builds the process-level logrus logger every long-lived
// component is handed a *logrus.Entry from.
package telemetry

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Config selects the level and wire format of the process log.
type Config struct {
	// Level is a logrus level name: trace, debug, info, warn, error,
	// fatal, panic. Empty defaults to "info".
	Level string
	// JSON selects logrus.JSONFormatter over the default text formatter,
	// for log-shipping deployments.
	JSON bool
}

// New builds the root log entry a World and its collaborators are
// constructed with. Every component attaches its own "component" field
// via entry.WithField, so this only sets level and output shape.
func New(cfg Config) (*logrus.Entry, error) {
	level := cfg.Level
	if level == "" {
		level = "info"
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("telemetry: invalid log level %q: %w", level, err)
	}

	logger := logrus.New()
	logger.SetLevel(parsed)
	if cfg.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logrus.NewEntry(logger), nil
}
