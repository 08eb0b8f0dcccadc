package logging

import (
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/guild-bag/internal/config"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex

	base   = newBase(config.Default().Log)
	baseMu sync.Mutex
)

// Configure applies the log section of the config to every component logger,
// including ones already handed out. The output set by SetOutput is kept.
func Configure(cfg config.Log) {
	baseMu.Lock()
	defer baseMu.Unlock()
	apply(base, cfg)
}

// SetOutput redirects all component loggers, used by tests and the console.
func SetOutput(w io.Writer) {
	baseMu.Lock()
	defer baseMu.Unlock()
	base.SetOutput(w)
}

// Base returns the shared logger behind every component entry.
func Base() *logrus.Logger {
	return base
}

// NewLogger returns the logger for a component. Entries are cached per
// component and share one underlying logrus.Logger.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	entry := base.WithField("component", component)
	loggers[component] = entry
	return entry
}

func newBase(cfg config.Log) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	apply(logger, cfg)
	return logger
}

// apply sets level and formatter. Colours are only used when the current
// output is a terminal.
func apply(logger *logrus.Logger, cfg config.Log) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	switch cfg.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		isInteractive := false
		if f, ok := logger.Out.(*os.File); ok {
			isInteractive = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		}
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:    true,
			DisableColors:    !isInteractive,
			DisableQuote:     isInteractive,
			QuoteEmptyFields: true,
		})
	}
}
