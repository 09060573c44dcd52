// Package logsvc reports log entries to Rollbar and mirrors them on a standard logger.
package logsvc

import (
	"fmt"
	"log"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

// NewRollbarLogger configures the rollbar client; reporting is disabled when there is no token or in test mode.
func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(strings.ToLower(conf.Env))
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.TestMode)
	return &RollbarLogger{std: std}
}

// Close waits for the pending reports to be sent.
func (l *RollbarLogger) Close() {
	rollbar.Close()
}

// split extracts the acting user from args; accepted args are errors, map[string]interface{} and user.User.
func split(msg string, args []interface{}) (items []interface{}, usr *user.User) {
	items = make([]interface{}, 0, len(args)+1)
	items = append(items, msg)
	for _, arg := range args {
		switch a := arg.(type) {
		case user.User:
			if usr == nil {
				a := a
				usr = &a
			}
		case *user.User:
			if usr == nil && a != nil {
				usr = a
			}
		default:
			items = append(items, arg)
		}
	}
	return items, usr
}

func (l *RollbarLogger) report(level string, msg string, args []interface{}) {
	items, usr := split(msg, args)
	if usr != nil {
		rollbar.SetPerson(fmt.Sprint(usr.ID), usr.Username, usr.Email)
	} else {
		rollbar.ClearPerson()
	}
	switch level {
	case rollbar.DEBUG:
		rollbar.Debug(items...)
	case rollbar.INFO:
		rollbar.Info(items...)
	case rollbar.WARN:
		rollbar.Warning(items...)
	case rollbar.ERR:
		rollbar.Error(items...)
	default:
		rollbar.Critical(items...)
	}

	l.std.Printf("[%s] %s", strings.ToUpper(level), msg)
	for _, item := range items[1:] {
		l.std.Printf("%+v", item)
	}
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) { l.report(rollbar.DEBUG, msg, args) }
func (l *RollbarLogger) Info(msg string, args ...interface{})  { l.report(rollbar.INFO, msg, args) }
func (l *RollbarLogger) Warn(msg string, args ...interface{})  { l.report(rollbar.WARN, msg, args) }
func (l *RollbarLogger) Error(msg string, args ...interface{}) { l.report(rollbar.ERR, msg, args) }

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.report(rollbar.CRIT, msg, args)
	rollbar.Close()
	l.std.Fatal(msg)
}
