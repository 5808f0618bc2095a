package observability

import (
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// RecoverPanic recovers from a panic and logs it with structured logging
//
// Usage in defer statements:
//
//	func startPlugin() {
//	    defer observability.RecoverPanic(logger, "wifi startup")
//	    backend.Startup()
//	}
//
// The panic is logged at Error level with the panic value, the stack trace and the
// context string, and is NOT re-raised.
func RecoverPanic(logger logrus.FieldLogger, context string) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			WithField("context", context).
			Error("PANIC recovered")
	}
}

// RecoverPanicWithCallback recovers from a panic, logs it, and executes a callback
//
// The callback only runs when a panic was recovered. Use it to update counters or
// mark the failed unit.
func RecoverPanicWithCallback(logger logrus.FieldLogger, context string, callback func(r any)) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			WithField("context", context).
			Error("PANIC recovered")
		if callback != nil {
			callback(r)
		}
	}
}

// MustRecover converts a recovered value to an error
//
// Usage when you want to convert panics to errors:
//
//	func loadTests() (tests []pluginapi.Test, err error) {
//	    defer func() {
//	        if r := recover(); r != nil {
//	            err = observability.MustRecover(r)
//	        }
//	    }()
//	    return backend.Tests(), nil
//	}
//
// Returns nil when r is nil. The stack trace is NOT included.
func MustRecover(r any) error {
	if r != nil {
		return fmt.Errorf("panic: %v", r)
	}
	return nil
}

// SafeCall runs fn and returns any panic as an error
func SafeCall(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = MustRecover(r)
		}
	}()
	fn()
	return nil
}
