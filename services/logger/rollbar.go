// Package logsvc implements core.Logger on a std logger, reporting to Rollbar when enabled.
package logsvc

import (
	"log"

	glog "github.com/labstack/gommon/log"
	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/user"
)

type RollbarLogger struct {
	std   *log.Logger
	level glog.Lvl
}

var _ core.Logger = (*RollbarLogger)(nil)

// NewRollbarLogger logs every level in debug mode, INFO and above otherwise.
func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(!conf.Debug && conf.RollbarToken != "")

	level := glog.INFO
	if conf.Debug {
		level = glog.DEBUG
	}
	return &RollbarLogger{std: std, level: level}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// expected fmt: msg | error, map[string]interface{}, user.User
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var usrSet bool
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		// set logged in User
		if usr, ok := arg.(user.User); ok {
			if !usrSet { // only set one User
				rollbar.SetPerson(usr.ID, usr.Username, usr.Email.String)
				usrSet = true
			}
		} else {
			newArgs = append(newArgs, arg)
		}
	}
	if !usrSet {
		rollbar.ClearPerson()
	}
	return newArgs
}

func (l RollbarLogger) print(level glog.Lvl, msg string, args []interface{}) {
	if level < l.level {
		return
	}
	l.std.Printf("[%s] %s", levelNames[level], msg)
	for _, arg := range args {
		if usr, ok := arg.(user.User); ok {
			l.std.Printf("  user: %s (%s)", usr.Username, usr.ID)
			continue
		}
		l.std.Printf("  %+v", arg)
	}
}

var levelNames = map[glog.Lvl]string{
	glog.DEBUG: "DEBUG",
	glog.INFO:  "INFO",
	glog.WARN:  "WARN",
	glog.ERROR: "ERROR",
	glog.OFF:   "FATAL",
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	if l.level <= glog.DEBUG {
		rollbar.Debug(l.prepare(msg, args)...)
	}
	l.print(glog.DEBUG, msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.print(glog.INFO, msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.print(glog.WARN, msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.print(glog.ERROR, msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	l.print(glog.OFF, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
