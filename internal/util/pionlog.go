package util

import (
	"fmt"

	"github.com/pion/logging"
	"github.com/pterm/pterm"
)

// PionLoggerFactory routes the logs of the pion stack (ICE, DTLS, SCTP) into
// the pterm logger. Pion's debug and trace output only appears with -debug.
type PionLoggerFactory struct{}

var _ logging.LoggerFactory = PionLoggerFactory{}

func (PionLoggerFactory) NewLogger(scope string) logging.LeveledLogger {
	return &pionLogger{scope: scope}
}

type pionLogger struct {
	scope string
}

func (l *pionLogger) line(msg string) string {
	return fmt.Sprintf("[pion/%s] %s", l.scope, msg)
}

func (l *pionLogger) Trace(msg string) { pterm.DefaultLogger.Trace(l.line(msg)) }
func (l *pionLogger) Tracef(format string, args ...interface{}) {
	l.Trace(fmt.Sprintf(format, args...))
}

func (l *pionLogger) Debug(msg string) { pterm.DefaultLogger.Debug(l.line(msg)) }
func (l *pionLogger) Debugf(format string, args ...interface{}) {
	l.Debug(fmt.Sprintf(format, args...))
}

func (l *pionLogger) Info(msg string) { pterm.DefaultLogger.Debug(l.line(msg)) }
func (l *pionLogger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

func (l *pionLogger) Warn(msg string) { pterm.DefaultLogger.Warn(l.line(msg)) }
func (l *pionLogger) Warnf(format string, args ...interface{}) {
	l.Warn(fmt.Sprintf(format, args...))
}

func (l *pionLogger) Error(msg string) { pterm.DefaultLogger.Error(l.line(msg)) }
func (l *pionLogger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}
