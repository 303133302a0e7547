// Package cmn provides common low-level types and utilities shared by every
// fdq package: the error taxonomy, assertions, and small concurrency helpers.
/*
 * Copyright (c) 2026 fdq Authors. All rights reserved.
 */
package cmn

import (
	"fmt"
	"runtime"
)

// ErrCode is the primary error taxonomy used across the coordinator and
// worker processes (spec §7).
type ErrCode int

const (
	Ok ErrCode = iota
	Eof
	OutOfMemory
	Transport
	External
	Internal
	BadArgument
	BadPath
	BadFilter
	Help
	ProtocolError
	InsufficientParallelism
)

func (c ErrCode) String() string {
	switch c {
	case Ok:
		return "ok"
	case Eof:
		return "eof"
	case OutOfMemory:
		return "out-of-memory"
	case Transport:
		return "transport"
	case External:
		return "external"
	case Internal:
		return "internal"
	case BadArgument:
		return "bad-argument"
	case BadPath:
		return "bad-path"
	case BadFilter:
		return "bad-filter"
	case Help:
		return "help"
	case ProtocolError:
		return "protocol-error"
	case InsufficientParallelism:
		return "insufficient-parallelism"
	default:
		return "unknown"
	}
}

// Error wraps an ErrCode with a user-facing message and the call site that
// raised it, following the teacher's convention of tagging errors with
// file/func/line for all but the quietest verbosity levels.
type Error struct {
	Code  ErrCode
	Msg   string
	Cause error
	File  string
	Line  int
	Func  string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%s:%d %s): %v", e.Code, e.Msg, e.File, e.Line, e.Func, e.Cause)
	}
	return fmt.Sprintf("%s: %s (%s:%d %s)", e.Code, e.Msg, e.File, e.Line, e.Func)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError constructs an *Error, capturing the caller's location.
func NewError(code ErrCode, cause error, format string, args ...interface{}) *Error {
	pc, file, line, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	fname := "?"
	if fn != nil {
		fname = fn.Name()
	}
	return &Error{
		Code:  code,
		Msg:   fmt.Sprintf(format, args...),
		Cause: cause,
		File:  file,
		Line:  line,
		Func:  fname,
	}
}

// CodeOf extracts the ErrCode from err, defaulting to Internal for
// unrecognized errors (e.g. a bare error from a third-party library).
func CodeOf(err error) ErrCode {
	if err == nil {
		return Ok
	}
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return Internal
}

// Fatal reports whether code should abort the process group per spec §7:
// Transport, ProtocolError, OutOfMemory, Internal and
// InsufficientParallelism are fatal, everything else is either
// recoverable (Eof, BadFilter on one worker) or user-facing (BadArgument,
// BadPath, Help).
func Fatal(code ErrCode) bool {
	switch code {
	case Transport, ProtocolError, OutOfMemory, Internal, InsufficientParallelism:
		return true
	default:
		return false
	}
}
