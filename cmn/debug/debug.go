// Package debug provides assertion helpers, mirroring the teacher's
// cmn/debug package. They are always compiled in and check Enabled at run
// time; building with the `debug` tag sets Enabled, so the helpers are
// no-ops in other builds and panic informatively in debug ones.
/*
 * Copyright (c) 2026 fdq Authors. All rights reserved.
 */
package debug

import "fmt"

// Enabled is flipped to true by the `debug` build tag (see debug_on.go).
var Enabled = false

// Assert panics with msg when cond is false and debug checks are enabled.
func Assert(cond bool, msg ...interface{}) {
	if !Enabled || cond {
		return
	}
	panic(fmt.Sprint(append([]interface{}{"assertion failed: "}, msg...)...))
}

// Assertf is the formatted counterpart of Assert.
func Assertf(cond bool, format string, args ...interface{}) {
	if !Enabled || cond {
		return
	}
	panic(fmt.Sprintf("assertion failed: "+format, args...))
}

// AssertNoErr panics on a non-nil error when debug checks are enabled; used
// for invariants the caller has already guaranteed (e.g. closing a reader
// that open() proved closeable).
func AssertNoErr(err error) {
	if !Enabled || err == nil {
		return
	}
	panic(fmt.Sprintf("assertion failed: unexpected error: %v", err))
}

// Func runs f only when debug checks are enabled, for assertions expensive
// enough that they shouldn't even be evaluated in production builds.
func Func(f func()) {
	if !Enabled {
		return
	}
	f()
}
