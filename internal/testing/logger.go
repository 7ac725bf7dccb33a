// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package testing

import (
	"fmt"

	"github.com/juju/loggo"
)

// CheckLog is satisfied by *testing.T and *check.C.
type CheckLog interface {
	Logf(string, ...any)
}

// CheckLogger writes worker log lines to the test log, so they only show
// up for failing tests.
type CheckLogger struct {
	Log CheckLog
}

// NewCheckLogger returns a CheckLogger that logs to the given CheckLog.
func NewCheckLogger(log CheckLog) CheckLogger {
	return CheckLogger{Log: log}
}

func (c CheckLogger) Errorf(msg string, args ...any) {
	c.logf(loggo.ERROR, msg, args...)
}
func (c CheckLogger) Warningf(msg string, args ...any) {
	c.logf(loggo.WARNING, msg, args...)
}
func (c CheckLogger) Infof(msg string, args ...any) {
	c.logf(loggo.INFO, msg, args...)
}
func (c CheckLogger) Debugf(msg string, args ...any) {
	c.logf(loggo.DEBUG, msg, args...)
}
func (c CheckLogger) Tracef(msg string, args ...any) {
	c.logf(loggo.TRACE, msg, args...)
}

func (c CheckLogger) logf(level loggo.Level, msg string, args ...any) {
	c.Log.Logf(fmt.Sprintf("%s: %s", level.String(), msg), args...)
}

// NoopLogger discards everything.
type NoopLogger struct{}

func (NoopLogger) Errorf(string, ...any)   {}
func (NoopLogger) Warningf(string, ...any) {}
func (NoopLogger) Infof(string, ...any)    {}
func (NoopLogger) Debugf(string, ...any)   {}
func (NoopLogger) Tracef(string, ...any)   {}
