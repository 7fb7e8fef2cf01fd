package config

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	loggersMu sync.Mutex
	loggers   = map[string]*logrus.Logger{}
	level     = logrus.InfoLevel
)

// NamedLogger creates named package logger.
func NamedLogger(name string) *logrus.Logger {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[name]; ok {
		return l
	}

	l := logrus.New()
	l.Out = os.Stderr
	l.Formatter = &logrus.TextFormatter{
		FullTimestamp:    true,
		DisableQuote:     true,
		PadLevelText:     true,
		QuoteEmptyFields: true,
	}
	l.Level = level
	l.AddHook(nameHook(name))
	loggers[name] = l
	return l
}

// SetVerbose switches every named logger between info and debug level.
func SetVerbose(verbose bool) {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	level = logrus.InfoLevel
	if verbose {
		level = logrus.DebugLevel
	}
	for _, l := range loggers {
		l.SetLevel(level)
	}
}

// nameHook tags every entry with the package that logged it.
type nameHook string

func (h nameHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h nameHook) Fire(entry *logrus.Entry) error {
	if _, ok := entry.Data["pkg"]; !ok {
		entry.Data["pkg"] = string(h)
	}
	return nil
}
