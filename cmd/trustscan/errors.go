package main

import (
	"errors"
	"fmt"
	"io"
)

// Process exit codes
const (
	exitOK      = 0
	exitUsage   = 2
	exitFailure = 3
)

// exitError carries the process exit code for a command failure
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

// usageError marks bad flags, bad configuration or an unsupported host
func usageError(err error) error {
	return &exitError{code: exitUsage, err: err}
}

// failure marks scan, render and persistence errors
func failure(err error) error {
	return &exitError{code: exitFailure, err: err}
}

// exitCode reports err on w and maps it to a process exit code.
// Errors raised by cobra itself (unknown command, bad arguments) are usage errors.
func exitCode(err error, w io.Writer) int {
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(w, "Error: %v\n", err) //nolint:errcheck // Best-effort report on stderr

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUsage
}
