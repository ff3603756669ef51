package observability

import (
	"fmt"
	"runtime/debug"
)

// RecoverPanic logs a recovered panic with its stack. Call it deferred at
// the top of goroutines that must outlive a bad job:
//
//	defer observability.RecoverPanic(logger, "audit retention")
//
// The panic is swallowed.
func RecoverPanic(logger *Logger, where string) {
	if r := recover(); r != nil {
		logger.WithFields(map[string]interface{}{
			"panic": fmt.Sprint(r),
			"stack": string(debug.Stack()),
			"where": where,
		}).Error("Recovered from panic")
	}
}

// PanicError turns a value returned by recover into an error, nil when
// there was no panic
func PanicError(r interface{}) error {
	if r == nil {
		return nil
	}
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
