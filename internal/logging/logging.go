package logging

import (
	"github.com/sirupsen/logrus"

	"github.com/posprint/printbridge/internal/config"
)

// New builds the process logger from config. Unknown levels fall back to
// info rather than failing startup; config.Validate catches typos earlier.
func New(cfg config.LoggingConfig) *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return log
}
