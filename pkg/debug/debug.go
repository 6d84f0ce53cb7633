// Package debug provides conditional trace logging for taxa.
//
// Tracing is enabled by setting the TAXA_DEBUG environment variable:
//
//	TAXA_DEBUG=1 taxa browse
//
// When enabled, messages go through a logrus logger at debug level. The TUI
// redirects that logger to the state-dir log file with SetOutput so traces do
// not corrupt the terminal. When disabled, every function is a no-op.
package debug

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	enabled atomic.Bool
	logger  = newLogger(os.Stderr)

	checkpointCounter atomic.Int64
)

func init() {
	if os.Getenv("TAXA_DEBUG") != "" {
		enabled.Store(true)
	}
}

func newLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000000",
	})
	return l
}

// Enabled reports whether trace logging is on.
func Enabled() bool {
	return enabled.Load()
}

// SetEnabled toggles trace logging at runtime.
func SetEnabled(e bool) {
	enabled.Store(e)
}

// SetOutput redirects trace output.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// Log writes a printf-style trace message.
func Log(format string, args ...any) {
	if !Enabled() {
		return
	}
	logger.Debugf(format, args...)
}

// LogTiming writes a timing message.
func LogTiming(name string, d time.Duration) {
	if !Enabled() {
		return
	}
	logger.WithField("elapsed", d).Debugf("%s took %v", name, d)
}

// LogIf writes a trace message only if cond is true.
func LogIf(cond bool, format string, args ...any) {
	if !Enabled() || !cond {
		return
	}
	logger.Debugf(format, args...)
}

// LogEnterExit logs function entry and exit with timing:
//
//	defer debug.LogEnterExit("Build")()
func LogEnterExit(name string) func() {
	if !Enabled() {
		return func() {}
	}
	logger.Debugf("-> %s", name)
	start := time.Now()
	return func() {
		logger.Debugf("<- %s (%v)", name, time.Since(start))
	}
}

// Trace is an alias for LogEnterExit.
var Trace = LogEnterExit

// Dump logs a value with its type.
func Dump(name string, v any) {
	if !Enabled() {
		return
	}
	logger.Debugf("%s: %T = %+v", name, v, v)
}

// Section logs a section header.
func Section(name string) {
	if !Enabled() {
		return
	}
	logger.Debugf("=== %s ===", name)
}

// Checkpoint logs a numbered checkpoint.
func Checkpoint(msg string) {
	if !Enabled() {
		return
	}
	n := checkpointCounter.Add(1)
	logger.Debugf("[%d] %s", n, msg)
}

// ResetCheckpoints resets the checkpoint counter.
func ResetCheckpoints() {
	checkpointCounter.Store(0)
}

// Assert panics if cond is false. Only active when tracing is enabled.
func Assert(cond bool, msg string) {
	if !Enabled() {
		return
	}
	if !cond {
		logger.Errorf("ASSERTION FAILED: %s", msg)
		panic(fmt.Sprintf("debug assertion failed: %s", msg))
	}
}
