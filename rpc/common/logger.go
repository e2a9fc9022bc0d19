package common

import (
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"log"
	"os"
	"strings"
)

// --------------------------------------------------------------------------
// Line Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// levelNames maps the levels to the tag printed in front of every line
var levelNames = map[logger.LogLevel]string{
	logger.CRITICAL: "CRIT",
	logger.ERROR:    "ERROR",
	logger.WARNING:  "WARN",
	logger.INFO:     "INFO",
	logger.DEBUG:    "DEBUG",
}

// lineLogger writes one line per entry: time, level, component and message.
// The component is the name the logger was requested with, e.g. transport/rpc.
type lineLogger struct {
	component string
	level     logger.LogLevel
	out       *log.Logger
}

func newLineLogger(component string, w io.Writer) *lineLogger {
	return &lineLogger{
		component: component,
		level:     logger.INFO,
		out:       log.New(w, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
}

func (l *lineLogger) SetLevel(level logger.LogLevel) {
	l.level = level
}

func (l *lineLogger) Debugf(format string, args ...interface{}) {
	l.emit(logger.DEBUG, format, args)
}

func (l *lineLogger) Infof(format string, args ...interface{}) {
	l.emit(logger.INFO, format, args)
}

func (l *lineLogger) Warningf(format string, args ...interface{}) {
	l.emit(logger.WARNING, format, args)
}

func (l *lineLogger) Errorf(format string, args ...interface{}) {
	l.emit(logger.ERROR, format, args)
}

// Panicf logs the message and panics with it
func (l *lineLogger) Panicf(format string, args ...interface{}) {
	l.emit(logger.CRITICAL, format, args)
	panic(fmt.Sprintf(format, args...))
}

// emit writes the entry if level is enabled
func (l *lineLogger) emit(level logger.LogLevel, format string, args []interface{}) {
	if level > l.level {
		return
	}
	l.out.Printf("%-5s | %-13s | %s", levelNames[level], l.component, fmt.Sprintf(format, args...))
}

// CreateLogger is the logger.Factory installed by InitLoggers. Loggers write to stdout.
func CreateLogger(component string) logger.ILogger {
	return newLineLogger(component, os.Stdout)
}

// --------------------------------------------------------------------------
// Levels
// --------------------------------------------------------------------------

// ParseLogLevel converts the --log-level flag value to a logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info", "":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return logger.INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// LoggerNames lists the components that log
var LoggerNames = []string{"transport/rpc", "rpc", "server", "notify"}

// InitLoggers installs CreateLogger and sets the level of every component
func InitLoggers(level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	logger.SetLoggerFactory(CreateLogger)

	for _, name := range LoggerNames {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}
