// Copyright (c) 2022, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package logger

import (
	"fmt"
	"os"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the log-level for logging what happens in the simulation as a whole, or to watch an
// individual node.
type Level int8

const (
	TraceLevel   Level = 6
	DebugLevel   Level = 5
	InfoLevel    Level = 4
	NoteLevel    Level = 3
	WarnLevel    Level = 2
	ErrorLevel   Level = 1
	PanicLevel   Level = 0
	FatalLevel   Level = -1
	OffLevel     Level = -2
	MinLevel           = OffLevel
	DefaultLevel       = InfoLevel
)

// zapLevels maps a Level, offset by MinLevel, to the zap level it is written at.
var zapLevels = [...]zapcore.Level{
	zapcore.FatalLevel + 1, // off
	zapcore.FatalLevel,
	zapcore.PanicLevel,
	zapcore.ErrorLevel,
	zapcore.WarnLevel,
	zapcore.InfoLevel, // note
	zapcore.InfoLevel,
	zapcore.DebugLevel,
	zapcore.DebugLevel, // trace
}

type StdoutCallback interface {
	OnStdout()
}

var (
	cfg          = newZapConfig()
	zaplogger    *zap.Logger
	currentLevel = DefaultLevel
	toTerminal   bool
	cbStdout     StdoutCallback
	simClock     Clock
)

func init() {
	if fi, err := os.Stdout.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
		toTerminal = true
	}
	rebuildLoggerFromCfg()
}

func newZapConfig() zap.Config {
	c := zap.NewDevelopmentConfig()
	c.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	c.Development = false
	c.DisableCaller = true
	c.DisableStacktrace = true
	c.EncoderConfig.MessageKey = "message"
	c.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	c.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return c
}

func rebuildLoggerFromCfg() {
	newLogger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	if zaplogger != nil {
		_ = zaplogger.Sync()
	}
	zaplogger = newLogger
}

func SetLevel(lv Level) {
	currentLevel = lv
}

func GetLevel() Level {
	return currentLevel
}

// SetStdoutCallback sets a callback, that the logger will call when new log content was written to stdout/stderr.
func SetStdoutCallback(cb StdoutCallback) {
	cbStdout = cb
}

// SetClock attaches the simulated time source: while set, every global log entry carries a "sim_us" field.
// A nil clock detaches it.
func SetClock(clock Clock) {
	simClock = clock
}

// SetOutput sets the zap output paths, e.g. []string{"stderr", "tsch-sim.log"}.
func SetOutput(outputs []string) {
	cfg.OutputPaths = outputs
	rebuildLoggerFromCfg()
}

// Sync flushes buffered log entries.
func Sync() {
	_ = zaplogger.Sync()
}

func getMessage(template string, fmtArgs []interface{}) string {
	switch {
	case len(fmtArgs) == 0:
		return template
	case template != "":
		return fmt.Sprintf(template, fmtArgs...)
	case len(fmtArgs) == 1:
		if str, ok := fmtArgs[0].(string); ok {
			return str
		}
	}
	return fmt.Sprint(fmtArgs...)
}

func isEnabled(level Level) bool {
	return level <= currentLevel || level <= PanicLevel
}

// Logf outputs a formatted message at the given level. Panic and fatal levels are always written, and make
// the zap logger panic or exit respectively.
func Logf(level Level, format string, args []interface{}) {
	if !isEnabled(level) {
		return
	}
	var fields []zap.Field
	if simClock != nil {
		fields = append(fields, zap.Uint64("sim_us", simClock.Now()))
	}
	logAlways(level, getMessage(format, args), fields...)
}

// logAlways writes to zap without a level check, keeping an interactive CLI prompt intact.
func logAlways(level Level, msg string, fields ...zap.Field) {
	if toTerminal {
		_, _ = fmt.Fprint(os.Stdout, "\033[2K\r")
	}
	if ce := zaplogger.Check(zapLevels[level-MinLevel], msg); ce != nil {
		ce.Write(fields...)
	}
	if toTerminal && cbStdout != nil {
		cbStdout.OnStdout()
	}
}

func Tracef(format string, args ...interface{}) { Logf(TraceLevel, format, args) }
func Debugf(format string, args ...interface{}) { Logf(DebugLevel, format, args) }
func Infof(format string, args ...interface{})  { Logf(InfoLevel, format, args) }
func Warnf(format string, args ...interface{})  { Logf(WarnLevel, format, args) }
func Errorf(format string, args ...interface{}) { Logf(ErrorLevel, format, args) }
func Panicf(format string, args ...interface{}) { Logf(PanicLevel, format, args) }
func Fatalf(format string, args ...interface{}) { Logf(FatalLevel, format, args) }

func PanicIfError(err error, args ...interface{}) {
	if err != nil {
		logError(PanicLevel, err, args)
	}
}

func FatalIfError(err error, args ...interface{}) {
	if err != nil {
		logError(FatalLevel, err, args)
	}
}

func logError(level Level, err error, args []interface{}) {
	if len(args) == 0 {
		args = []interface{}{err}
	}
	Logf(level, "", []interface{}{getMessage("", args)})
}

// assertLogger turns a failed assertion into a panic-level log entry.
type assertLogger struct{}

func (assertLogger) Errorf(format string, args ...interface{}) {
	Panicf(format, args...)
}

func AssertEqual(expected, actual interface{}, msgAndArgs ...interface{}) bool {
	return assert.Equal(assertLogger{}, expected, actual, msgAndArgs...)
}

func AssertNil(object interface{}, msgAndArgs ...interface{}) bool {
	return assert.Nil(assertLogger{}, object, msgAndArgs...)
}

func AssertNotNil(object interface{}, msgAndArgs ...interface{}) bool {
	return assert.NotNil(assertLogger{}, object, msgAndArgs...)
}

func AssertTrue(value bool, msgAndArgs ...interface{}) bool {
	return assert.True(assertLogger{}, value, msgAndArgs...)
}

func AssertFalse(value bool, msgAndArgs ...interface{}) bool {
	return assert.False(assertLogger{}, value, msgAndArgs...)
}

func AssertTruef(value bool, msg string, args ...interface{}) bool {
	return assert.Truef(assertLogger{}, value, msg, args...)
}
