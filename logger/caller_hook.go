package logger

import (
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// internalFrames are function-path fragments whose frames never count as the
// caller: logrus internals and this package's own wrappers.
var internalFrames = []string{
	"sirupsen/logrus",
	"Team-6-Taxi-App/logger",
}

// callerHook adjusts the caller reported by logrus so it points
// to the original call site outside of the logger package.
type callerHook struct{}

// Levels returns all log levels for this hook.
func (h *callerHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire sets the entry's Caller to the first frame outside of logrus
// and this package.
func (h *callerHook) Fire(entry *logrus.Entry) error {
	pcs := make([]uintptr, 16)
	// Skip runtime.Callers, this method, logrus internals and our wrappers.
	n := runtime.Callers(6, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !more {
			break
		}
		if isInternalFrame(frame.Function) {
			continue
		}
		entry.Caller = &frame
		break
	}
	return nil
}

func isInternalFrame(fn string) bool {
	for _, fragment := range internalFrames {
		if strings.Contains(fn, fragment) {
			return true
		}
	}
	return false
}
