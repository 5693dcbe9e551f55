// Package fail implements the panic/recover "fail fast" idiom used
// throughout this module: a function declares a named error return,
// defers fail.Around(&err) as its first statement, and then calls
// fail.On/fail.Fast to abort with context instead of threading
// `if err != nil { return err }` through every step.
package fail

import "fmt"

// failure is the panic payload raised by On/Fast and caught by Around.
type failure struct {
	err error
}

// On panics with a formatted error when condition is true. Safe to call
// with a condition that is always false; it is then a no-op.
func On(condition bool, format string, args ...any) {
	if !condition {
		return
	}
	panic(failure{err: fmt.Errorf(format, args...)})
}

// Fast panics with err when err is non-nil, otherwise is a no-op.
func Fast(err error) {
	if err == nil {
		return
	}
	panic(failure{err: err})
}

// Around recovers a panic raised by On/Fast and stores it into *err,
// letting the caller's normal (named) return path carry it onward. Any
// other panic value is re-raised unchanged so genuine bugs still crash
// loudly instead of being swallowed.
func Around(err *error) {
	r := recover()
	if r == nil {
		return
	}
	f, ok := r.(failure)
	if !ok {
		panic(r)
	}
	*err = f.err
}
